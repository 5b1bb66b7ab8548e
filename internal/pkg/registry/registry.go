package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/manmiddle614-crypto/backend/internal/pkg/worker"
	"github.com/manmiddle614-crypto/backend/pkg/cache"
	"github.com/manmiddle614-crypto/backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ModuleContext 模块初始化所需的上下文
type ModuleContext struct {
	// Ctx 服务生命周期，后台任务 (如定时清理) 在它取消时退出
	Ctx     context.Context
	DB      *gorm.DB
	SQLX    *sqlx.DB // 维护任务使用，可能为空
	Redis   *redis.Client
	Cache   cache.CacheService
	Metrics *metrics.MetricsCollector
	Workers worker.Dispatcher
	Router  *gin.Engine
}

// Module 模块接口
type Module interface {
	// Name 返回模块名称
	Name() string

	// Init 初始化模块（依赖注入、路由注册等）
	Init(ctx *ModuleContext) error

	// Priority 返回初始化优先级（数字越小越先初始化）
	Priority() int
}

// moduleRegistry 全局模块注册表
var moduleRegistry = make(map[string]Module)

// Register 注册模块，重名直接 panic (init 阶段的编程错误)
func Register(module Module) {
	if _, exists := moduleRegistry[module.Name()]; exists {
		panic(fmt.Sprintf("registry: module %q registered twice", module.Name()))
	}
	moduleRegistry[module.Name()] = module
}

// GetModules 获取所有已注册的模块
func GetModules() map[string]Module {
	return moduleRegistry
}

// sorted 按优先级排序，优先级相同按名称，保证启动顺序稳定
func sorted() []Module {
	modules := make([]Module, 0, len(moduleRegistry))
	for _, m := range moduleRegistry {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Priority() != modules[j].Priority() {
			return modules[i].Priority() < modules[j].Priority()
		}
		return modules[i].Name() < modules[j].Name()
	})
	return modules
}

// InitModules 按优先级初始化所有模块
func InitModules(ctx *ModuleContext) error {
	for _, module := range sorted() {
		if err := module.Init(ctx); err != nil {
			return fmt.Errorf("init module %s: %w", module.Name(), err)
		}
	}
	return nil
}
