package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/benjamonnguyen/clockin-go"
	"github.com/benjamonnguyen/clockin-go/discordgo"
	"github.com/benjamonnguyen/clockin-go/i18n"
	"github.com/benjamonnguyen/clockin-go/mongodb"
	"github.com/benjamonnguyen/clockin-go/sqlite"
	dg "github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

const (
	RepoURL = "https://github.com/benjamonnguyen/clockin-go"
	Version = "0.1.0"
)

func main() {
	var isProd bool
	flag.BoolVar(&isProd, "p", false, "load .env instead of .env.dev")
	flag.Parse()

	topCtx, topCtxC := context.WithCancel(context.Background())
	initTimeout, initTimeoutC := context.WithTimeout(topCtx, 10*time.Second)

	// config
	cfg, err := clockin.LoadConfig(isProd)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("invalid log level", "level", cfg.LogLevel, "err", err)
	}
	log.SetLevel(lvl)
	log.SetReportCaller(true)
	if lvl > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	i18n.Init(cfg.Locale)

	// db
	log.Info("opening db", "path", cfg.DatabaseURL)
	db, err := sqlite.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed database open", "err", err)
	}
	defer db.Close() //nolint

	tx, dbGetter := txStdLib.NewTransactor(
		db,
		txStdLib.NestedTransactionsSavepoints,
	)
	sessionRepo := sqlite.NewSessionRepo(dbGetter, *log.Default())

	var activityRepo clockin.ActivityRepo
	var mongoDB *mongodb.DB
	switch cfg.ActivityBackend {
	case clockin.ActivityBackendMongoDB:
		mongoDB, err = mongodb.Connect(initTimeout, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatal("failed mongodb connect", "err", err)
		}
		repo, err := mongodb.NewActivityRepo(initTimeout, mongoDB, *log.Default())
		panicif(err)
		activityRepo = repo
	default:
		activityRepo = sqlite.NewActivityRepo(dbGetter, *log.Default())
	}
	activity := NewActivityLog(activityRepo, *log.Default())

	// set up discord cl
	cl, err := dg.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatal(err)
	}
	cl.Identify.Intents = dg.IntentsGuilds | dg.IntentsDirectMessages
	cl.ShouldRetryOnRateLimit = false
	cl.Client = &http.Client{Timeout: (20 * time.Second)}
	cl.UserAgent = fmt.Sprintf("%s (%s, v%s)", cfg.BotName, RepoURL, Version)

	dm := NewDiscordMessenger(cl)
	discordAdapter := discordgo.NewDiscordAdapter(cl, *log.Default())

	// attendance
	clock := clockwork.NewRealClock()
	registry := NewMonitorRegistry()
	monitor := NewMonitorController(registry, activity, clock, *log.Default())
	scheduler := NewWarningScheduler(topCtx, clock, dmNotifier{dms: discordAdapter}, *log.Default())
	attendanceManager := NewAttendanceManager(attendanceDeps{
		Policy:    cfg.Policy,
		BaseURL:   cfg.BaseURL,
		Clock:     clock,
		Repo:      sessionRepo,
		Tx:        tx,
		Scheduler: scheduler,
		Monitor:   monitor,
		Activity:  activity,
		Logger:    *log.Default(),
	})
	panicif(attendanceManager.RestoreSessions(initTimeout))

	// discord event hooks
	cl.AddHandler(func(s *dg.Session, m *dg.InteractionCreate) {
		_ = ShowPanel(topCtx, attendanceManager, dm, m) ||
			HandleCommandButton(topCtx, attendanceManager, dm, m) ||
			ExportActivityLog(topCtx, cfg.IsAdmin, activity.Recent, cfg.Policy.Location, dm, m)
	})
	cl.AddHandler(func(s *dg.Session, m *dg.MessageCreate) {
		HandleDirectMessage(topCtx, attendanceManager, dm, s, m)
	})

	// monitoring server
	srv := NewMonitorServer(
		net.JoinHostPort("", cfg.Port),
		NewMonitorRouter(registry, monitor, discordAdapter.Username, *log.Default()),
	)
	var wg sync.WaitGroup
	wg.Go(func() {
		log.Info("starting monitoring server", "addr", srv.Addr, "url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("monitoring server failed", "err", err)
		}
	})

	// open connection
	if err := cl.Open(); err != nil {
		log.Fatal("Error opening connection", "err", err)
	}
	log.Info(cfg.BotName + " running. Press CTRL-C to exit.")

	// init done
	initTimeoutC()

	// graceful shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	log.Info("terminating " + cfg.BotName)
	topCtxC()
	shutdownTimeout, shutdownTimeoutC := context.WithTimeout(context.Background(), time.Minute)
	go func() {
		// stop taking commands before tearing down what they use
		if err := cl.Close(); err != nil {
			log.Error(err)
		}
		scheduler.Shutdown()
		registry.CloseAll()
		if err := srv.Shutdown(shutdownTimeout); err != nil {
			log.Error("failed monitoring server shutdown", "err", err)
		}
		wg.Wait()
		if err := activity.Close(shutdownTimeout); err != nil {
			log.Error("dropped pending activity", "err", err)
		}
		if mongoDB != nil {
			if err := mongoDB.Close(shutdownTimeout); err != nil {
				log.Error(err)
			}
		}
		shutdownTimeoutC()
	}()
	<-shutdownTimeout.Done()
	if shutdownTimeout.Err() != context.Canceled {
		log.Error("failed to shut down gracefully", "err", shutdownTimeout.Err())
	}
}

func panicif(err error) {
	if err != nil {
		panic(err)
	}
}
