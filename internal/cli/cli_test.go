package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/BartekS5/commentflow/internal/config"
	"github.com/BartekS5/commentflow/internal/etl"
	"github.com/BartekS5/commentflow/internal/secret"
	"github.com/BartekS5/commentflow/pkg/models"
)

// pagedSource serves n comments in pages of 100.
type pagedSource struct{ n int }

func (p pagedSource) ListCommentThreads(_ context.Context, req models.PageRequest) (models.Page, error) {
	start := 0
	if req.PageToken != "" {
		fmt.Sscanf(req.PageToken, "p%d", &start)
	}
	end := min(start+int(req.MaxResults), p.n)
	page := models.Page{}
	for i := start; i < end; i++ {
		page.Items = append(page.Items, models.CommentRecord{Text: fmt.Sprintf("comment %d", i), LikeCount: int64(i)})
	}
	if end < p.n {
		page.NextPageToken = fmt.Sprintf("p%d", end)
	}
	return page, nil
}

func useFakeSource(t *testing.T, n int) {
	t.Helper()
	orig := newPageSource
	newPageSource = func(context.Context, *config.Config, secret.SecretStore) (etl.PageSource, error) {
		return pagedSource{n: n}, nil
	}
	t.Cleanup(func() { newPageSource = orig })
}

func localEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("STORAGE_LOCAL_ROOT", t.TempDir())
	t.Setenv("WAREHOUSE_BACKEND", "memory")
	t.Setenv("POLL_INTERVAL", "10ms")
	t.Setenv("POLL_TIMEOUT", "2s")
	t.Setenv("MONGO_CONNECTION_STRING", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommandEndToEnd(t *testing.T) {
	localEnv(t)
	useFakeSource(t, 250)

	out, err := execute(t, "run", "--video", "abc", "--date", "2024-03-09")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"LoadComplete",
		"rows harvested: 250",
		"{comments:STRING, likes:INTEGER}",
		"loaded rows:    250",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandDryRun(t *testing.T) {
	localEnv(t)
	useFakeSource(t, 3)

	out, err := execute(t, "run", "--video", "abc", "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v\n%s", err, out)
	}
	if strings.Contains(out, "loaded rows") {
		t.Errorf("dry run must not load:\n%s", out)
	}
}

func TestHarvestThenInfer(t *testing.T) {
	localEnv(t)
	useFakeSource(t, 5)

	out, err := execute(t, "harvest", "--video", "abc")
	if err != nil {
		t.Fatalf("harvest failed: %v", err)
	}
	if !strings.Contains(out, "wrote 5 comments to gs://youtube_fetch_data/comments.csv") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = execute(t, "infer")
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if strings.TrimSpace(out) != "{comments:STRING, likes:INTEGER}" {
		t.Errorf("unexpected schema %q", out)
	}
}

func TestRunWithoutVideoFails(t *testing.T) {
	localEnv(t)
	useFakeSource(t, 1)
	t.Setenv("VIDEO_ID", "")

	_, err := execute(t, "run")
	if !errors.Is(err, etl.ErrHarvestFailed) {
		t.Fatalf("expected HarvestFailed, got %v", err)
	}
}

func TestRunsNeedsMongo(t *testing.T) {
	localEnv(t)
	if _, err := execute(t, "runs"); err == nil {
		t.Fatal("expected error without MONGO_CONNECTION_STRING")
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	localEnv(t)
	cfg, err := loadConfig(&Options{VideoID: "xyz", Storage: "s3", Warehouse: "bigquery"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.VideoID != "xyz" || cfg.Storage.Backend != "s3" || cfg.Warehouse.Backend != "bigquery" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if _, err := loadConfig(&Options{Storage: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRunDate(t *testing.T) {
	d, err := runDate(&Options{RunDate: "2024-03-09"})
	if err != nil || d.Format("20060102") != "20240309" {
		t.Errorf("got %v, %v", d, err)
	}
	if _, err := runDate(&Options{RunDate: "09/03/2024"}); err == nil {
		t.Error("expected error for bad date")
	}
	if d, _ := runDate(&Options{}); time.Since(d) > time.Minute {
		t.Error("default date should be now")
	}
}

func TestAPIKeyFlagReachesSource(t *testing.T) {
	localEnv(t)
	t.Setenv("YOUTUBE_API_KEY", "from-env")

	var keys []string
	orig := newPageSource
	newPageSource = func(_ context.Context, _ *config.Config, secrets secret.SecretStore) (etl.PageSource, error) {
		key, err := secret.Require(secrets, secret.APIKeyName)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		return pagedSource{n: 2}, nil
	}
	t.Cleanup(func() { newPageSource = orig })

	if out, err := execute(t, "harvest", "--video", "abc", "--api-key", "from-flag"); err != nil {
		t.Fatalf("harvest with flag: %v\n%s", err, out)
	}
	if out, err := execute(t, "harvest", "--video", "abc"); err != nil {
		t.Fatalf("harvest from env: %v\n%s", err, out)
	}
	if len(keys) != 2 || keys[0] != "from-flag" || keys[1] != "from-env" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestSecretStoreWithoutFlagReadsEnv(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")
	s, err := secretStore(&Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := secret.Require(s, secret.APIKeyName); err == nil {
		t.Error("expected a missing key to be reported")
	}
}
