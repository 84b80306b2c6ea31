package main

import (
	"converse-backend/config"
	"converse-backend/dao"
	"converse-backend/router"
	"converse-backend/service/attachment"
	"converse-backend/service/mq"
	"converse-backend/service/retrieval"
	"converse-backend/service/taskmodel"
	"converse-backend/service/titles"
	"log/slog"
	"os"
)

func main() {
	if err := config.Load(); err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	if err := dao.Init(); err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}

	taskmodel.Init()

	if err := mq.Init(); err != nil {
		slog.Error("Failed to init message queue", "err", err)
		os.Exit(1)
	}
	defer mq.Shutdown()

	attachment.Init()

	// retrieval is optional; completions run without reference docs when
	// the vector store is unreachable
	if err := retrieval.Init(); err != nil {
		slog.Error("Failed to init retrieval service", "err", err)
	}

	titles.Init(taskmodel.Instance)
	titles.Instance.Run()

	r := router.Register()
	if err := r.Run(":" + config.Cfg.Server.Port); err != nil {
		slog.Error("Failed to start server", "err", err)
		os.Exit(1)
	}
}
