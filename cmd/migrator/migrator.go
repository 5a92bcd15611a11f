package main

import (
	"os"

	"github.com/NordCoder/Hertz/internal/obs"
	"github.com/NordCoder/Hertz/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	log, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "hertz-migrator"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is empty")
	}
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if err := goose.Run(command, db, "."); err != nil {
		log.Fatal("migrate", zap.String("command", command), zap.Error(err))
	}
	log.Info("migrations done", zap.String("command", command))
}
