package router

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// 模块可以只实现其中一个，也可以两个都实现（同一份依赖既挂用户端也挂后台）
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// prioritizer 数值越小越先挂，不实现按 100
type prioritizer interface{ Priority() int }

// Registry 模块注册表；每个 engine 一份
type Registry struct {
	mu        sync.RWMutex
	apiMods   []APIModule
	adminMods []AdminModule
}

// Register 按实现的接口分发；两个都没实现说明装配写错了，直接 panic
func (r *Registry) Register(mods ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mod := range mods {
		api, isAPI := mod.(APIModule)
		admin, isAdmin := mod.(AdminModule)
		if !isAPI && !isAdmin {
			panic(fmt.Sprintf("router: %T mounts nothing", mod))
		}
		if isAPI {
			r.apiMods = append(r.apiMods, api)
		}
		if isAdmin {
			r.adminMods = append(r.adminMods, admin)
		}
	}
}

func (r *Registry) MountAllAPI(g *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]APIModule(nil), r.apiMods...)
	r.mu.RUnlock()
	for _, m := range byPriority(mods) {
		m.MountAPI(g)
	}
}

func (r *Registry) MountAllAdmin(g *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]AdminModule(nil), r.adminMods...)
	r.mu.RUnlock()
	for _, m := range byPriority(mods) {
		m.MountAdmin(g)
	}
}

// byPriority 稳定排序，同优先级保持注册顺序
func byPriority[M any](mods []M) []M {
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	return mods
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
