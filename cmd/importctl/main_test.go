package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pandahoho/importer/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("IMPORTCTL_BASE_URL", "http://localhost:8080")
	t.Setenv("LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTemplateToStdout(t *testing.T) {
	out, err := execute(t, "template", "carousel", "-o", "-")
	if err != nil {
		t.Fatalf("template error = %v", err)
	}
	if !strings.HasPrefix(out, "\ufefftitle,subtitle,image_url,link_url,sort_order,active\r\n") &&
		!strings.HasPrefix(out, "\ufefftitle,subtitle,image_url,link_url,sort_order,active\n") {
		t.Errorf("template output = %q", out)
	}
}

func TestTemplateToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.csv")
	if _, err := execute(t, "template", "cities", "-o", path); err != nil {
		t.Fatalf("template error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\xEF\xBB\xBFname,slug,province")) {
		t.Errorf("template file = %q", data)
	}
}

func TestUnknownTarget(t *testing.T) {
	_, err := execute(t, "template", "hotels")
	if err == nil || !strings.Contains(err.Error(), "carousel, cities, triplists") {
		t.Errorf("error = %v, want the known targets listed", err)
	}
}

func TestCheck(t *testing.T) {
	ready := writeFile(t, "cities.csv", []byte("name,province\nChengdu,Sichuan\n"))
	invalid := writeFile(t, "trips.csv", []byte("title,city_slug,category\nHotpot,chengdu,gambling\n"))

	t.Run("text ready", func(t *testing.T) {
		out, err := execute(t, "check", "cities", ready)
		if err != nil {
			t.Fatalf("check error = %v", err)
		}
		for _, want := range []string{"File:      cities.csv", "State:     ready", "Records:   1"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json invalid", func(t *testing.T) {
		out, err := execute(t, "check", "triplists", invalid, "--format", "json")
		if !errors.Is(err, errNotReady) {
			t.Fatalf("check error = %v, want errNotReady", err)
		}
		var snap struct {
			State        string   `json:"state"`
			ErrorSummary []string `json:"errorSummary"`
		}
		if err := json.Unmarshal([]byte(out), &snap); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}
		if snap.State != "invalid" || len(snap.ErrorSummary) != 1 || !strings.Contains(snap.ErrorSummary[0], "invalid category") {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "check", "cities", ready, "--format", "yaml")
		if err != nil {
			t.Fatalf("check error = %v", err)
		}
		var snap map[string]any
		if err := yaml.Unmarshal([]byte(out), &snap); err != nil {
			t.Fatalf("output is not YAML: %v\n%s", err, out)
		}
		if snap["state"] != "ready" || snap["recordCount"] != 1 {
			t.Errorf("snapshot = %v", snap)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		if _, err := execute(t, "check", "cities", ready, "--format", "xml"); err == nil {
			t.Error("check with --format xml succeeded")
		}
	})
}

func TestImport(t *testing.T) {
	var got []domain.City
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cities/bulk" || r.Header.Get("X-API-Key") != "k1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"count":2,"created":2}`))
	}))
	defer srv.Close()

	path := writeFile(t, "cities.csv", []byte("name,province\nChengdu,Sichuan\nHarbin,Heilongjiang\n"))
	out, err := execute(t, "import", "cities", path, "--base-url", srv.URL, "--api-key", "k1")
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "Imported 2 cities from cities.csv (2 created, 0 updated)") {
		t.Errorf("output = %q", out)
	}
	if len(got) != 2 || got[1].Slug != "harbin" {
		t.Errorf("posted cities = %+v", got)
	}
}

func TestImportRefusesInvalidFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid file reached the bulk endpoint")
	}))
	defer srv.Close()

	path := writeFile(t, "cities.csv", []byte("name\nChengdu\n"))
	out, err := execute(t, "import", "cities", path, "--base-url", srv.URL)
	if !errors.Is(err, errNotReady) {
		t.Fatalf("import error = %v, want errNotReady", err)
	}
	if !strings.Contains(out, "missing required columns: province") {
		t.Errorf("output = %q", out)
	}
}

func TestImportRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"invalid API key","code":"AUTH002"}`))
	}))
	defer srv.Close()

	path := writeFile(t, "cities.csv", []byte("name,province\nChengdu,Sichuan\n"))
	out, err := execute(t, "import", "cities", path, "--base-url", srv.URL, "--api-key", "bad")
	if err == nil || !strings.Contains(err.Error(), "(403): invalid API key [AUTH002]") {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "State:     submit_failed") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(describe(err), "IMP006") {
		t.Errorf("describe() = %q, want IMP006", describe(err))
	}
}
