package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"skillswap/internal/core/auth"
	"skillswap/internal/core/database"
	"skillswap/internal/core/server"
	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/internal/service"
	"skillswap/pkg/utils"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type testApp struct {
	t     *testing.T
	api   *gin.Engine
	admin *gin.Engine
	svc   *service.Services
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + utils.NewID() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	svc := service.New(repo.NewStore(db), service.Options{})
	if _, err := svc.Aggregator.SeedBadges(t.Context()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "skillswap", TTL: time.Hour}
	o := Options{Server: server.Options{Mode: gin.TestMode}}
	o.Limits.AuthRPS, o.Limits.AuthBurst = 1000, 1000
	return &testApp{
		t:     t,
		api:   NewAPIEngine(nil, svc, jwter, o),
		admin: NewAdminEngine(nil, svc, jwter, o),
		svc:   svc,
	}
}

func (a *testApp) do(h http.Handler, method, path, token string, body any) envelope {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		a.t.Fatalf("%s %s: http status %d", method, path, w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return env
}

// ok 断言成功并把 data 解到 out
func (a *testApp) ok(env envelope, out any) {
	a.t.Helper()
	if env.Code != 0 {
		a.t.Fatalf("code = %d kind = %q msg = %q", env.Code, env.Kind, env.Msg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
}

func (a *testApp) fail(env envelope, code int, kind string) {
	a.t.Helper()
	if env.Code != code || env.Kind != kind {
		a.t.Fatalf("got code %d kind %q (%s), want %d %q", env.Code, env.Kind, env.Msg, code, kind)
	}
}

type authOut struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (a *testApp) register(name string, offered ...string) authOut {
	a.t.Helper()
	var out authOut
	a.ok(a.do(a.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": name + "@example.com", "username": name, "password": "password123",
		"offeredSkills": offered,
	}), &out)
	if out.Token == "" || out.User.ID == "" {
		a.t.Fatalf("register %s: %+v", name, out)
	}
	return out
}

func TestSwapLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice", "Go")
	bob := app.register("bob", "Guitar")

	var sw struct {
		ID           string              `json:"id"`
		Status       domain.SwapStatus   `json:"status"`
		OfferedSkill *domain.Skill       `json:"offeredSkill"`
		ToUser       *domain.UserSummary `json:"toUser"`
	}
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/swaps", alice.Token, gin.H{
		"toUserId": bob.User.ID, "offeredSkill": " go ", "wantedSkill": "Guitar", "message": "hi",
	}), &sw)
	if sw.Status != domain.SwapPending || sw.OfferedSkill == nil || sw.OfferedSkill.Name != "Go" || sw.ToUser.Username != "bob" {
		t.Fatalf("created swap = %+v", sw)
	}

	app.fail(app.do(app.api, http.MethodPost, "/api/v1/swaps", alice.Token, gin.H{
		"toUserId": alice.User.ID, "offeredSkill": "Go", "wantedSkill": "Guitar",
	}), 400, "same_user")
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/accept", alice.Token, nil), 403, "forbidden")

	app.ok(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/accept", bob.Token, nil), &sw)
	if sw.Status != domain.SwapAccepted {
		t.Fatalf("status after accept = %s", sw.Status)
	}
	env := app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/accept", bob.Token, nil)
	app.fail(env, 409, "invalid_transition")
	if !strings.Contains(env.Msg, "accepted") {
		t.Fatalf("transition error lacks current status: %q", env.Msg)
	}

	// 未完成不能评
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/ratings", bob.Token, gin.H{"score": 5}), 409, "not_eligible")

	app.ok(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/transition", alice.Token, gin.H{"status": "completed"}), &sw)
	if sw.Status != domain.SwapCompleted {
		t.Fatalf("status after complete = %s", sw.Status)
	}

	app.fail(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/ratings", bob.Token, gin.H{"score": 4.5}), 400, "invalid_score")
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/ratings", bob.Token, gin.H{"score": 5, "feedback": "great"}), nil)
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/swaps/"+sw.ID+"/ratings", bob.Token, gin.H{"score": 4}), 409, "duplicate_rating")

	var profile struct {
		Rating              float64 `json:"rating"`
		TotalRatings        int     `json:"totalRatings"`
		TotalCompletedSwaps int     `json:"totalCompletedSwaps"`
		Badges              []struct {
			Name string `json:"name"`
		} `json:"badges"`
	}
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/users/"+alice.User.ID, bob.Token, nil), &profile)
	if profile.Rating != 5 || profile.TotalRatings != 1 || profile.TotalCompletedSwaps != 1 {
		t.Fatalf("alice profile = %+v", profile)
	}
	names := map[string]bool{}
	for _, b := range profile.Badges {
		names[b.Name] = true
	}
	if !names["New Member"] || !names["Perfect Rating"] {
		t.Fatalf("badges = %+v", profile.Badges)
	}

	var ratings struct {
		Total int64 `json:"total"`
		List  []struct {
			Score int `json:"score"`
			Rater struct {
				Username string `json:"username"`
			} `json:"rater"`
		} `json:"list"`
	}
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/users/"+alice.User.ID+"/ratings", bob.Token, nil), &ratings)
	if ratings.Total != 1 || ratings.List[0].Score != 5 || ratings.List[0].Rater.Username != "bob" {
		t.Fatalf("ratings = %+v", ratings)
	}

	var mine struct {
		Total int64 `json:"total"`
	}
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/swaps?direction=received&status=completed", bob.Token, nil), &mine)
	if mine.Total != 1 {
		t.Fatalf("bob received completed = %d", mine.Total)
	}
	app.fail(app.do(app.api, http.MethodGet, "/api/v1/swaps?direction=sideways", bob.Token, nil), 400, "validation")

	carol := app.register("carol")
	app.fail(app.do(app.api, http.MethodGet, "/api/v1/swaps/"+sw.ID, carol.Token, nil), 404, "not_found")
}

func TestNotificationsOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice")
	bob := app.register("bob")
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/swaps", alice.Token, gin.H{
		"toUserId": bob.User.ID, "offeredSkill": "Go", "wantedSkill": "Chess",
	}), nil)

	var count struct {
		Count int64 `json:"count"`
	}
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/notifications/unread-count", bob.Token, nil), &count)
	// New Member + New Swap Request
	if count.Count != 2 {
		t.Fatalf("unread = %d", count.Count)
	}

	var list struct {
		Total int64                 `json:"total"`
		List  []domain.Notification `json:"list"`
	}
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/notifications?unread=true", bob.Token, nil), &list)
	if list.Total != 2 || list.List[0].Type != domain.NotifySwapRequest || list.List[0].Title != "New Swap Request" {
		t.Fatalf("notifications = %+v", list)
	}
	id := list.List[0].ID

	app.fail(app.do(app.api, http.MethodPost, "/api/v1/notifications/"+id+"/read", alice.Token, nil), 403, "forbidden")
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/notifications/"+id+"/read", bob.Token, nil), nil)
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/notifications/"+id+"/read", bob.Token, nil), nil)
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/notifications?unread=true", bob.Token, nil), &list)
	if list.Total != 1 {
		t.Fatalf("unread after read = %d", list.Total)
	}

	var all struct {
		Updated int64 `json:"updated"`
	}
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/notifications/read-all", bob.Token, nil), &all)
	if all.Updated != 1 {
		t.Fatalf("read-all updated = %d", all.Updated)
	}

	app.ok(app.do(app.api, http.MethodGet, "/api/v1/notifications?type=badge_earned", bob.Token, nil), &list)
	if list.Total != 1 || list.List[0].Type != domain.NotifyBadgeEarned {
		t.Fatalf("badge notifications = %+v", list)
	}
	app.fail(app.do(app.api, http.MethodGet, "/api/v1/notifications?type=bogus", bob.Token, nil), 400, "validation")
}

func TestUserSkillsCRUD(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice")

	var us domain.UserSkill
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/user-skills", alice.Token, gin.H{
		"skillName": "  Rock   Climbing ", "skillType": "offered", "proficiency": "advanced",
	}), &us)
	if us.ID == "" || us.UserID != alice.User.ID || us.Skill == nil || us.Skill.Name != "Rock Climbing" {
		t.Fatalf("created = %+v", us)
	}

	app.fail(app.do(app.api, http.MethodPost, "/api/v1/user-skills", alice.Token, gin.H{
		"skillName": "rock climbing", "skillType": "offered",
	}), 409, "conflict")
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/user-skills", alice.Token, gin.H{
		"skillName": "Chess", "skillType": "maybe",
	}), 400, "validation")
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/user-skills", alice.Token, gin.H{
		"skillName": " ", "skillType": "wanted",
	}), 400, "invalid_skill_name")

	app.ok(app.do(app.api, http.MethodPut, "/api/v1/user-skills/"+us.ID, alice.Token, gin.H{"proficiency": "expert"}), &us)
	if us.Proficiency != "expert" || us.Skill == nil || us.Skill.Name != "Rock Climbing" {
		t.Fatalf("updated = %+v", us)
	}

	var page struct {
		Total int64              `json:"total"`
		List  []domain.UserSkill `json:"list"`
	}
	app.ok(app.do(app.api, http.MethodGet, "/api/v1/user-skills?type=offered", alice.Token, nil), &page)
	if page.Total != 1 || page.List[0].SkillName != "Rock Climbing" {
		t.Fatalf("list = %+v", page)
	}

	bob := app.register("bob")
	app.fail(app.do(app.api, http.MethodDelete, "/api/v1/user-skills/"+us.ID, bob.Token, nil), 404, "not_found")
	app.ok(app.do(app.api, http.MethodDelete, "/api/v1/user-skills/"+us.ID, alice.Token, nil), nil)
	app.fail(app.do(app.api, http.MethodDelete, "/api/v1/user-skills/"+us.ID, alice.Token, nil), 404, "not_found")
}

func TestAuthAndAdmin(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice")
	bob := app.register("bob")

	app.fail(app.do(app.api, http.MethodGet, "/api/v1/me", "", nil), 401, "unauthorized")
	app.fail(app.do(app.api, http.MethodGet, "/api/v1/me", "garbage", nil), 401, "unauthorized")
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "alice", "password": "nope-nope"}), 401, "unauthorized")

	var me domain.User
	app.ok(app.do(app.api, http.MethodPut, "/api/v1/me", alice.Token, gin.H{"bio": "hello", "availability": "busy"}), &me)
	if me.Bio != "hello" || me.Availability != "busy" {
		t.Fatalf("me = %+v", me)
	}

	// 普通用户进不了管理端
	app.fail(app.do(app.admin, http.MethodGet, "/admin/v1/stats", alice.Token, nil), 403, "forbidden")

	if _, err := app.svc.Admin.SetRole(t.Context(), "alice", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	var login authOut
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "password123"}), &login)

	var stats service.PlatformStats
	app.ok(app.do(app.admin, http.MethodGet, "/admin/v1/stats", login.Token, nil), &stats)
	if stats.Users != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	app.fail(app.do(app.admin, http.MethodPost, "/admin/v1/users/"+alice.User.ID+"/ban", login.Token, nil), 400, "validation")
	app.ok(app.do(app.admin, http.MethodPost, "/admin/v1/users/"+bob.User.ID+"/ban", login.Token, nil), nil)
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "bob", "password": "password123"}), 403, "forbidden")

	var sent struct {
		Recipients int `json:"recipients"`
	}
	app.ok(app.do(app.admin, http.MethodPost, "/admin/v1/notifications/broadcast", login.Token, gin.H{"title": "Hi", "message": "all"}), &sent)
	if sent.Recipients != 1 {
		t.Fatalf("broadcast recipients = %d", sent.Recipients)
	}

	app.ok(app.do(app.admin, http.MethodPost, "/admin/v1/users/"+bob.User.ID+"/unban", login.Token, nil), nil)
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "bob", "password": "password123"}), nil)

	w := httptest.NewRecorder()
	app.admin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "skillswap_") {
		t.Fatalf("metrics status %d", w.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	for _, body := range []gin.H{
		{"email": "Eve <eve@example.com>", "username": "eve", "password": "password123"},
		{"email": "eve@example.com", "username": "ev", "password": "password123"},
		{"email": "eve@example.com", "username": "eve", "password": "short"},
		{"email": "eve@example.com", "username": "eve"},
	} {
		app.fail(app.do(app.api, http.MethodPost, "/api/v1/auth/register", "", body), 400, "validation")
	}
	app.register("eve")
}

func TestRefreshReissuesWithCurrentRole(t *testing.T) {
	app := newTestApp(t)
	alice := app.register("alice")
	bob := app.register("bob")

	app.fail(app.do(app.api, http.MethodPost, "/api/v1/auth/refresh", "", nil), 401, "unauthorized")

	var out struct {
		authOut
		ExpiresAt time.Time `json:"expiresAt"`
	}
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/auth/refresh", alice.Token, nil), &out)
	if out.Token == "" || out.Token == alice.Token || out.User.ID != alice.User.ID || !out.ExpiresAt.After(time.Now()) {
		t.Fatalf("refresh = %+v", out)
	}

	// 旧 token 里还是 user 角色，换发后拿到 admin
	if _, err := app.svc.Admin.SetRole(t.Context(), "alice", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	app.fail(app.do(app.admin, http.MethodGet, "/admin/v1/stats", alice.Token, nil), 403, "forbidden")
	app.ok(app.do(app.api, http.MethodPost, "/api/v1/auth/refresh", alice.Token, nil), &out)
	if out.User.Role != domain.RoleAdmin {
		t.Fatalf("refreshed role = %q", out.User.Role)
	}
	app.ok(app.do(app.admin, http.MethodGet, "/admin/v1/stats", out.Token, nil), nil)

	app.ok(app.do(app.admin, http.MethodPost, "/admin/v1/users/"+bob.User.ID+"/ban", out.Token, nil), nil)
	app.fail(app.do(app.api, http.MethodPost, "/api/v1/auth/refresh", bob.Token, nil), 403, "forbidden")
}
