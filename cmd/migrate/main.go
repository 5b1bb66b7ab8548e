package main

import (
	"errors"
	"flag"
	"fmt"
	"net/url"

	"github.com/manmiddle614-crypto/backend/internal/pkg/config"
	"github.com/manmiddle614-crypto/backend/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func migrateURL(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=" + cfg.SSLMode,
	}
	return u.String()
}

func main() {
	down := flag.Bool("down", false, "回滚一个版本")
	force := flag.Int("force", -1, "强制设置版本 (修复 dirty 状态)")
	dir := flag.String("dir", "migrations", "迁移文件目录")
	flag.Parse()

	config.LoadConfig()
	if err := logger.InitLogger(config.GlobalConfig.App.Debug); err != nil {
		panic(err)
	}
	defer logger.Sync()

	m, err := migrate.New("file://"+*dir, migrateURL(config.GlobalConfig.Database))
	if err != nil {
		logger.Log.Fatal("open migrations", zap.Error(err))
	}
	defer m.Close()

	switch {
	case *force >= 0:
		err = m.Force(*force)
	case *down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}

	var dirty migrate.ErrDirty
	switch {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
	case errors.As(err, &dirty):
		logger.Log.Fatal("database is dirty, fix it and rerun with -force",
			zap.String("hint", fmt.Sprintf("-force %d", dirty.Version-1)), zap.Error(err))
	default:
		logger.Log.Fatal("migration failed", zap.Error(err))
	}

	version, isDirty, _ := m.Version()
	logger.Log.Info("migration successful", zap.Uint("version", version), zap.Bool("dirty", isDirty))
}
