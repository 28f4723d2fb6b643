package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ramtinsoft/ibsguard/internal/state"
	"github.com/ramtinsoft/ibsguard/internal/usecase"
)

// allowedExtensions are the archive suffixes the bot accepts for restore.
var allowedExtensions = []string{".dump.gz", ".dump", ".sql.gz", ".sql", ".bak"}

// Bot drives backups and restores over a single authorized Telegram chat.
// Messages from any other chat are ignored without a reply.
type Bot struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	logger  usecase.Logger
	store   *state.Store
	backup  *usecase.Backup
	restore *usecase.Restore

	downloadDir     string
	defaultInterval int

	mu              sync.Mutex
	backupRunning   bool
	awaitingRestore bool
}

func New(
	token string,
	chatID int64,
	store *state.Store,
	backup *usecase.Backup,
	restore *usecase.Restore,
	downloadDir string,
	defaultIntervalHours int,
	logger usecase.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return &Bot{
		api:             api,
		chatID:          chatID,
		logger:          logger,
		store:           store,
		backup:          backup,
		restore:         restore,
		downloadDir:     downloadDir,
		defaultInterval: defaultIntervalHours,
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.logger.Infof("telegram bot started as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.ID != b.chatID {
		b.logger.Warnf("ignoring message from unauthorized chat %d", msg.Chat.ID)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg.Document)
		return
	}

	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "backup":
		b.handleBackup(ctx)
	case "status":
		b.handleStatus()
	case "restore":
		b.handleRestoreArm()
	case "cancel":
		b.handleCancel()
	case "time":
		b.handleTime(msg.CommandArguments())
	case "start", "help":
		b.reply("Commands:\n" +
			"/backup - run a backup now\n" +
			"/status - last backup and settings\n" +
			"/restore - restore from an uploaded file\n" +
			"/cancel - cancel a pending restore\n" +
			"/time <hours> - set the minimum backup interval")
	default:
		b.reply("Unknown command. Send /help for the list.")
	}
}

// handleBackup runs an on-demand backup. Manual backups bypass the minimum
// interval; only one backup runs at a time.
func (b *Bot) handleBackup(ctx context.Context) {
	b.mu.Lock()
	if b.backupRunning {
		b.mu.Unlock()
		b.reply("A backup is already running.")
		return
	}
	b.backupRunning = true
	b.mu.Unlock()

	b.reply("Starting backup...")

	go func() {
		defer func() {
			b.mu.Lock()
			b.backupRunning = false
			b.mu.Unlock()
		}()

		backup, err := b.backup.Execute(ctx)
		if err != nil {
			b.logger.Errorf("manual backup failed: %v", err)
			b.reply(fmt.Sprintf("Backup failed: %v", err))
			return
		}

		if err := b.store.Update(func(s *state.State) {
			s.LastBackupUnix = time.Now().Unix()
		}); err != nil {
			b.logger.Errorf("failed to record backup time: %v", err)
		}

		b.reply(fmt.Sprintf("Backup completed: %s (%s)", backup.Filename, formatSize(backup.Size)))
	}()
}

func (b *Bot) handleStatus() {
	s, err := b.store.Load()
	if err != nil {
		b.reply(fmt.Sprintf("Failed to read state: %v", err))
		return
	}

	var sb strings.Builder
	last := s.LastBackup()
	if last.IsZero() {
		sb.WriteString("Last backup: never\n")
	} else {
		fmt.Fprintf(&sb, "Last backup: %s (%s ago)\n",
			last.Format("2006-01-02 15:04:05"), time.Since(last).Round(time.Minute))
	}

	hours := s.MinIntervalHours
	if hours <= 0 {
		hours = b.defaultInterval
	}
	fmt.Fprintf(&sb, "Minimum interval: %dh\n", hours)

	b.mu.Lock()
	if b.backupRunning {
		sb.WriteString("Backup: running\n")
	}
	if b.awaitingRestore {
		sb.WriteString("Restore: waiting for a file (/cancel to abort)\n")
	}
	b.mu.Unlock()

	b.reply(sb.String())
}

func (b *Bot) handleRestoreArm() {
	b.mu.Lock()
	b.awaitingRestore = true
	b.mu.Unlock()

	b.reply("Send the backup file to restore (" + strings.Join(allowedExtensions, ", ") + "). " +
		"This will REPLACE the current database. /cancel to abort.")
}

func (b *Bot) handleCancel() {
	b.mu.Lock()
	was := b.awaitingRestore
	b.awaitingRestore = false
	b.mu.Unlock()

	if was {
		b.reply("Restore cancelled.")
	} else {
		b.reply("Nothing to cancel.")
	}
}

func (b *Bot) handleTime(args string) {
	hours, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || hours <= 0 {
		b.reply("Usage: /time <hours>, e.g. /time 6")
		return
	}

	if err := b.store.Update(func(s *state.State) {
		s.MinIntervalHours = hours
	}); err != nil {
		b.reply(fmt.Sprintf("Failed to save interval: %v", err))
		return
	}
	b.reply(fmt.Sprintf("Minimum backup interval set to %dh.", hours))
}

func (b *Bot) handleDocument(ctx context.Context, doc *tgbotapi.Document) {
	b.mu.Lock()
	armed := b.awaitingRestore
	b.mu.Unlock()

	if !armed {
		b.reply("Send /restore first if you want to restore this file.")
		return
	}

	if !hasAllowedExtension(doc.FileName) {
		b.reply("Unsupported file type. Accepted: " + strings.Join(allowedExtensions, ", "))
		return
	}

	b.mu.Lock()
	b.awaitingRestore = false
	b.mu.Unlock()

	b.reply("Downloading " + doc.FileName + "...")

	localPath, err := b.downloadDocument(ctx, doc)
	if err != nil {
		b.logger.Errorf("failed to download %s: %v", doc.FileName, err)
		b.reply(fmt.Sprintf("Download failed: %v", err))
		return
	}
	defer os.Remove(localPath)

	b.reply("Restoring from " + doc.FileName + "...")

	report, err := b.restore.Execute(ctx, localPath)
	if err != nil {
		b.logger.Errorf("restore of %s failed: %v", doc.FileName, err)
		b.reply(fmt.Sprintf("Restore failed: %v", err))
		return
	}

	b.reply(summarizeRestore(report))
}

func (b *Bot) downloadDocument(ctx context.Context, doc *tgbotapi.Document) (string, error) {
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file url: %w", err)
	}

	if err := os.MkdirAll(b.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	localPath := filepath.Join(b.downloadDir, filepath.Base(doc.FileName))
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", localPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(localPath)
		return "", err
	}

	return localPath, nil
}

func (b *Bot) reply(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Errorf("failed to send telegram message: %v", err)
	}
}

func summarizeRestore(report *usecase.RestoreReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Restore completed (%s format).\n", report.Format)

	for i, passErr := range report.PassErrors {
		if passErr != nil {
			fmt.Fprintf(&sb, "SQL pass %d reported errors.\n", i+1)
		}
	}

	if report.ServiceRunning {
		sb.WriteString("Service is up.")
	} else {
		sb.WriteString("WARNING: service did not come back after restart.")
	}
	return sb.String()
}

func hasAllowedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func formatSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
