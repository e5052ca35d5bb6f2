package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/pixelscan/internal/config"
	"github.com/nao1215/pixelscan/internal/database"
)

func TestCompareCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	target := seedHistory(t, dbDir, pixelPage, trackedPage)

	t.Run("text output shows new trackers", func(t *testing.T) {
		t.Parallel()
		out, err := runCommand(t, NewCompareCmd(), "--db-dir", dbDir, target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "PIXELSCAN COMPARISON") || !strings.Contains(out, "NEW TRACKERS") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if !strings.Contains(out, "googletagmanager.com") {
			t.Errorf("expected the added script in output:\n%s", out)
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()
		out, err := runCommand(t, NewCompareCmd(), "--db-dir", dbDir, "--json", target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var c struct {
			PreviousID int64 `json:"previous_id"`
			CurrentID  int64 `json:"current_id"`
			Added      []struct {
				Domain string `json:"domain"`
			} `json:"added"`
			Removed    []json.RawMessage `json:"removed"`
			ScoreDelta int               `json:"score_delta"`
		}
		if err := json.Unmarshal([]byte(out), &c); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if c.PreviousID == 0 || c.CurrentID <= c.PreviousID {
			t.Errorf("ids = %d -> %d, want ascending", c.PreviousID, c.CurrentID)
		}
		if len(c.Added) == 0 {
			t.Error("expected added trackers")
		}
		if len(c.Removed) != 0 {
			t.Errorf("expected no removed trackers, got %d", len(c.Removed))
		}
		if c.ScoreDelta >= 0 {
			t.Errorf("score delta = %d, want negative", c.ScoreDelta)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()
		out, err := runCommand(t, NewCompareCmd(), "--db-dir", dbDir, "-m", target)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "## New Trackers") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()
		if _, err := runCommand(t, NewCompareCmd(), "--db-dir", dbDir, "-j", "-m", target); err == nil {
			t.Error("expected error for conflicting formats")
		}
	})

	t.Run("requires a url", func(t *testing.T) {
		t.Parallel()
		if _, err := runCommand(t, NewCompareCmd(), "--db-dir", dbDir); err == nil {
			t.Error("expected error without url")
		}
	})
}

func TestBuildComparison(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	target := seedHistory(t, dbDir, trackedPage, pixelPage, pixelPage)
	other := seedHistory(t, dbDir, pixelPage)

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	history, err := db.History(t.Context(), target)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 scans, got %d", len(history))
	}
	oldest := history[2].ID

	t.Run("defaults to the two latest scans", func(t *testing.T) {
		t.Parallel()
		c, err := buildComparison(t.Context(), db, target, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.CurrentID != history[0].ID || c.PreviousID != history[1].ID {
			t.Errorf("ids = %d -> %d, want %d -> %d", c.PreviousID, c.CurrentID, history[1].ID, history[0].ID)
		}
		if len(c.Added) != 0 || len(c.Removed) != 0 {
			t.Errorf("identical pages differ: added %v removed %v", c.Added, c.Removed)
		}
	})

	t.Run("with scan id", func(t *testing.T) {
		t.Parallel()
		c, err := buildComparison(t.Context(), db, target, oldest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.PreviousID != oldest {
			t.Errorf("PreviousID = %d, want %d", c.PreviousID, oldest)
		}
		if len(c.Removed) == 0 {
			t.Error("expected the script to be reported as removed")
		}
		if c.ScoreDelta <= 0 {
			t.Errorf("score delta = %d, want positive", c.ScoreDelta)
		}
	})

	t.Run("unknown scan id", func(t *testing.T) {
		t.Parallel()
		if _, err := buildComparison(t.Context(), db, target, 9999); !errors.Is(err, errScanNotFound) {
			t.Errorf("got %v, want errScanNotFound", err)
		}
	})

	t.Run("scan of another url", func(t *testing.T) {
		t.Parallel()
		otherHistory, err := db.History(t.Context(), other)
		if err != nil || len(otherHistory) != 1 {
			t.Fatalf("other history: %v, %d", err, len(otherHistory))
		}
		_, err = buildComparison(t.Context(), db, target, otherHistory[0].ID)
		if !errors.Is(err, errScanURLMismatch) {
			t.Errorf("got %v, want errScanURLMismatch", err)
		}
	})

	t.Run("comparing the latest scan with itself", func(t *testing.T) {
		t.Parallel()
		if _, err := buildComparison(t.Context(), db, target, history[0].ID); !errors.Is(err, errNotEnoughScans) {
			t.Errorf("got %v, want errNotEnoughScans", err)
		}
	})

	t.Run("single scan", func(t *testing.T) {
		t.Parallel()
		if _, err := buildComparison(t.Context(), db, other, 0); !errors.Is(err, errNotEnoughScans) {
			t.Errorf("got %v, want errNotEnoughScans", err)
		}
	})
}

func TestOpenHistoryDBDefaultsToDataDir(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	flag := cmd.Flags().Lookup("db-dir")
	if flag == nil {
		t.Fatal("expected db-dir flag")
	}
	if flag.DefValue != "" {
		t.Errorf("default = %q, want empty (falls back to %s)", flag.DefValue, config.XDGDataDir())
	}
}
