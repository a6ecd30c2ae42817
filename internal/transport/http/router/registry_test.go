package router

import (
	"testing"

	"github.com/gin-gonic/gin"
)

type orderMod struct {
	name  string
	prio  int
	trace *[]string
}

func (m orderMod) Priority() int                 { return m.prio }
func (m orderMod) MountAPI(*gin.RouterGroup)     { *m.trace = append(*m.trace, "api:"+m.name) }
func (m orderMod) MountAdmin(g *gin.RouterGroup) { *m.trace = append(*m.trace, "admin:"+m.name) }

type apiOnly struct{ trace *[]string }

func (m apiOnly) MountAPI(*gin.RouterGroup) { *m.trace = append(*m.trace, "api:default") }

func TestRegistryMountOrder(t *testing.T) {
	var trace []string
	var reg Registry
	reg.Register(apiOnly{&trace}, orderMod{"b", 20, &trace}, orderMod{"a", 10, &trace}, orderMod{"c", 20, &trace})

	g := gin.New().Group("/")
	reg.MountAllAPI(g)
	reg.MountAllAdmin(g)

	want := []string{"api:a", "api:b", "api:c", "api:default", "admin:a", "admin:b", "admin:c"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestRegistryRejectsNonModule(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var reg Registry
	reg.Register(struct{}{})
}
