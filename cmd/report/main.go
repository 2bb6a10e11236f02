package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"chat-insights-go/internal/config"
	"chat-insights-go/internal/crm"
	"chat-insights-go/internal/logger"
	"chat-insights-go/internal/notify"
	"chat-insights-go/internal/report"
	"chat-insights-go/internal/sheet"
)

func main() {
	_ = godotenv.Load() // loads .env

	runID := uuid.New().String()
	log := logger.New()
	baseLog := log.WithRun(runID).WithField("service", "chat-insights-go")
	baseLog.Info("starting run")

	cfg, err := config.FromEnv()
	if err != nil {
		baseLog.WithField("error", err.Error()).Fatal("configuration error")
	}
	baseLog.WithField("timezone", cfg.Timezone).WithField("work_hours", cfg.Window.String()).Info("configuration loaded")

	path := cfg.DatasetPath
	if path == "" {
		path = "chat_insights.xlsx"
	}
	store, err := sheet.Open(path)
	if err != nil {
		baseLog.WithField("error", err.Error()).Fatal("failed to open workbook")
	}
	defer store.Close()

	in := report.Input{}
	if cfg.CRMBaseURL != "" {
		in, err = fetchInput(cfg)
		if err != nil {
			baseLog.WithField("error", err.Error()).Fatal("failed to fetch from CRM")
		}
	} else {
		if in.Chats, err = store.ReadChats(cfg.Location); err != nil {
			baseLog.WithField("error", err.Error()).Fatal("failed to read chats")
		}
		if in.Messages, err = store.ReadMessages(cfg.Location); err != nil {
			baseLog.WithField("error", err.Error()).Fatal("failed to read messages")
		}
		if in.Users, err = store.ReadUsers(); err != nil {
			baseLog.WithField("error", err.Error()).Fatal("failed to read users")
		}
	}
	baseLog.WithField("chats", len(in.Chats)).WithField("messages", len(in.Messages)).Info("dataset loaded")

	history, err := store.ReadHistory()
	if err != nil {
		baseLog.WithField("error", err.Error()).Fatal("failed to read history")
	}

	start := time.Now()
	out := report.Run(cfg, in, history, start)
	baseLog.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("managers", len(out.Snapshots)).
		WithField("examples", len(out.Examples)).
		Info("run computed")

	if err := writeOutput(store, out); err != nil {
		baseLog.WithField("error", err.Error()).Fatal("failed to write report")
	}
	if err := store.Save(); err != nil {
		baseLog.WithField("error", err.Error()).Fatal("failed to save workbook")
	}
	baseLog.WithField("path", path).Info("report written")

	// Notification is best effort: a broken broker must not fail a run
	// whose tables are already written.
	if cfg.AMQPURL != "" {
		pub, err := notify.New(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			baseLog.WithField("error", err.Error()).Warn("notify connect failed")
			return
		}
		defer pub.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		digest := notify.Digest{
			RunID:    runID,
			RunTS:    out.RunTS,
			Chats:    len(out.ChatMetrics),
			Managers: len(out.Snapshots),
			Examples: len(out.Examples),
		}
		if err := pub.PublishDigest(ctx, digest); err != nil {
			baseLog.WithField("error", err.Error()).Warn("notify publish failed")
		}
	}
}

func fetchInput(cfg *config.Config) (report.Input, error) {
	client := crm.New(cfg.CRMBaseURL, cfg.CRMAPIKey, cfg.Location)
	ctx := context.Background()

	days := 7
	if v := os.Getenv("FETCH_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	until := time.Now()
	since := until.AddDate(0, 0, -days)

	in := report.Input{}
	var err error
	if in.Users, err = client.Users(ctx); err != nil {
		return in, err
	}
	if in.Chats, err = client.Chats(ctx, since, until); err != nil {
		return in, err
	}
	for _, c := range in.Chats {
		msgs, err := client.ChatMessages(ctx, c.ID)
		if err != nil {
			return in, err
		}
		in.Messages = append(in.Messages, msgs...)
	}
	return in, nil
}

func writeOutput(store *sheet.Store, out report.Output) error {
	if err := store.WriteChatMetrics(out.ChatMetrics); err != nil {
		return err
	}
	if err := store.WriteSpinMetrics(out.SpinMetrics); err != nil {
		return err
	}
	if err := store.WriteManagerSummary(out.ManagerSummary); err != nil {
		return err
	}
	if err := store.WriteChannelSummary(out.ChannelSummary); err != nil {
		return err
	}
	if err := store.WriteSnapshots(out.Snapshots); err != nil {
		return err
	}
	if err := store.AppendHistory(out.Snapshots); err != nil {
		return err
	}
	if err := store.WriteDeltas(out.Deltas); err != nil {
		return err
	}
	return store.WriteExamples(out.Examples)
}
