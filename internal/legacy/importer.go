// Package legacy loads the old flat-file contact map and per-conversation
// chat logs into the store. The import is idempotent: message ids that are
// already stored are skipped, so re-running it is safe.
package legacy

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wazapp/wazappd/internal/store"
	"go.uber.org/zap"
)

const logExt = ".log"

// contactEntry is one row of the legacy contact map file.
type contactEntry struct {
	Name      string `toml:"name"`
	PictureID string `toml:"picture_id"`
}

// Result summarizes one import run.
type Result struct {
	Contacts int
	Messages int
	Skipped  int
}

// Importer reads legacy data into the store.
type Importer struct {
	store  *store.Store
	logger *zap.Logger
}

// NewImporter creates a legacy importer.
func NewImporter(s *store.Store, logger *zap.Logger) *Importer {
	return &Importer{store: s, logger: logger}
}

// Run imports the contact map at contactsFile and every "<conversationId>.log"
// file under logDir. Log lines are "messageId;timestamp;sender;receiver;message"
// with epoch-second timestamps; the body may itself contain semicolons.
// Imported messages count as already read. Contact-list notifications are
// held back until the whole batch committed.
func (i *Importer) Run(ctx context.Context, contactsFile, logDir string) (*Result, error) {
	contacts := map[string]contactEntry{}
	if contactsFile != "" {
		if _, err := toml.DecodeFile(contactsFile, &contacts); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read contact map %q: %w", contactsFile, err)
			}
			i.logger.Warn("legacy contact map missing", zap.String("path", contactsFile))
		}
	}

	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("read log dir %q: %w", logDir, err)
	}

	i.store.SuspendContactNotifications()
	defer i.store.ResumeContactNotifications()

	res := &Result{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, logExt) {
			continue
		}
		conversationID := strings.TrimSuffix(name, logExt)

		if c, ok := contacts[conversationID]; ok {
			patch := store.ContactPatch{Name: &c.Name}
			if c.PictureID != "" {
				patch.PictureID = &c.PictureID
			}
			if _, err := i.store.Upsert(ctx, conversationID, patch); err != nil {
				return res, fmt.Errorf("import contact %q: %w", conversationID, err)
			}
			res.Contacts++
		}

		if err := i.importLog(ctx, filepath.Join(logDir, name), conversationID, res); err != nil {
			return res, err
		}
	}

	i.logger.Info("legacy import finished",
		zap.Int("contacts", res.Contacts),
		zap.Int("messages", res.Messages),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (i *Importer) importLog(ctx context.Context, path, conversationID string, res *Result) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ";", 5)
		if len(parts) != 5 {
			i.logger.Warn("malformed legacy log line",
				zap.String("file", path), zap.Int("line", lineNo))
			continue
		}
		messageID, tsRaw, sender, receiver, body := parts[0], parts[1], parts[2], parts[3], parts[4]

		seconds, err := strconv.ParseFloat(tsRaw, 64)
		if err != nil {
			i.logger.Warn("bad timestamp in legacy log",
				zap.String("file", path), zap.Int("line", lineNo), zap.Error(err))
			continue
		}

		present, err := i.store.HasMessage(ctx, messageID)
		if err != nil {
			return fmt.Errorf("check message %q: %w", messageID, err)
		}
		if present {
			res.Skipped++
			continue
		}

		if _, err := i.store.AddMessage(ctx, store.AddMessageParams{
			ConversationID: conversationID,
			MessageID:      messageID,
			Sender:         sender,
			Receiver:       receiver,
			Body:           body,
			Timestamp:      int64(seconds * 1000),
			IsRead:         true,
		}); err != nil {
			return fmt.Errorf("import message %q: %w", messageID, err)
		}
		res.Messages++
	}
	return scanner.Err()
}
