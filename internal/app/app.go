package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AISystem01/404TurfBot/internal/config"
	"github.com/AISystem01/404TurfBot/internal/domain"
	"github.com/AISystem01/404TurfBot/internal/engine"
	"github.com/AISystem01/404TurfBot/internal/scheduler"
	"github.com/AISystem01/404TurfBot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	eng     *engine.Engine
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting turf bot",
		zap.String("data", a.cfg.DataDir),
		zap.String("tz", a.cfg.Timezone),
		zap.String("http", a.cfg.HTTPAddr),
	)

	loc, err := domain.ValidateTZ(a.cfg.Timezone)
	if err != nil {
		a.log.Error("invalid timezone", zap.Error(err))
		return err
	}

	eng, err := engine.New(engine.Options{
		DataDir:  a.cfg.DataDir,
		Location: loc,
		Log:      a.log,
	})
	if err != nil {
		a.log.Error("engine init failed", zap.Error(err))
		return err
	}
	a.eng = eng

	// Environment values only seed the settings store on first run.
	if err := eng.EnsureChats(a.cfg.PollChat, a.cfg.LogChat, a.cfg.LOAChat); err != nil {
		a.log.Error("persist chat bindings failed", zap.Error(err))
		return err
	}
	if err := eng.EnsureAdmins(a.cfg.AdminIDs); err != nil {
		a.log.Error("persist admin set failed", zap.Error(err))
		return err
	}

	a.router = telegram.NewRouter(a.bot, a.log, eng)
	a.sched = scheduler.New(eng, a.router, loc, a.log)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.sched.Run(ctx)
	a.router.StartupRefresh()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
