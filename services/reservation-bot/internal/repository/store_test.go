package repository

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/db"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func sampleStore() domain.Store {
	st := domain.Store{}
	r1 := domain.New("1735700000000", "U1", domain.Details{Level: "10", Date: "1/1", Time: "12:00", Nickname: "X", Code: "ABCD"})
	r1.Participants = []string{"U2", "U3"}
	r1.MessageID = strPtr("99887766")
	r2 := domain.New("1735700000001", "U2", domain.Details{Level: "5", Date: "1/2", Time: "21:00", Nickname: "Y", Code: "EFGH"})
	st.Put(r1)
	st.Put(r2)
	return st
}

// storeContract runs the same expectations against every implementation.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load on fresh store failed: %v", err)
	}
	if empty.Len() != 0 {
		t.Fatalf("fresh store has %d entries", empty.Len())
	}

	want := sampleStore()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	// removal must be visible after the next full save
	got.Remove("1735700000000")
	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("Save after remove failed: %v", err)
	}
	again, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again.Len() != 1 {
		t.Fatalf("store len = %d, want 1", again.Len())
	}
	if _, ok := again.Get("1735700000001"); !ok {
		t.Fatal("remaining reservation missing")
	}

	if err := s.Save(ctx, domain.Store{}); err != nil {
		t.Fatalf("Save empty failed: %v", err)
	}
	cleared, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cleared.Len() != 0 {
		t.Fatalf("store len = %d after clearing", cleared.Len())
	}
}

func TestJSONFileStoreContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	storeContract(t, NewJSONFileStore(path, discardLogger()))
}

func TestJSONFileStoreWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	s := NewJSONFileStore(path, discardLogger())
	st := domain.Store{}
	st.Put(domain.New("1", "U1", domain.Details{Level: "10", Date: "1/1", Time: "12:00", Nickname: "X", Code: "ABCD"}))
	if err := s.Save(context.Background(), st); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "1": {
    "owner": "U1",
    "level": "10",
    "date": "1/1",
    "time": "12:00",
    "puni": "X",
    "code": "ABCD",
    "participants": [],
    "messageId": null
  }
}`
	if string(b) != want {
		t.Fatalf("file content:\n%s\nwant:\n%s", b, want)
	}
}

func TestJSONFileStoreLoadDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty":    "",
		"spaces":   "  \n",
		"garbage":  "{not json",
		"null":     "null",
		"wrongtyp": `["a","b"]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			st, err := NewJSONFileStore(path, discardLogger()).Load(context.Background())
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if st == nil || st.Len() != 0 {
				t.Fatalf("expected empty store, got %v", st)
			}
		})
	}
}

// save(load()) must not change content, even for files written by other tools.
func TestJSONFileStoreLoadSaveIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservations.json")
	input := `{"1735700000000":{"owner":"U1","level":"10","date":"1/1","time":"12:00","puni":"X","code":"ABCD","participants":["U2"],"messageId":"123"},` +
		`"1735700000001":{"owner":"U2","level":"3","date":"2/2","time":"8:00","puni":"Y","code":"Q","participants":[],"messageId":null}}`
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewJSONFileStore(path, discardLogger())
	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var before, after map[string]any
	if err := json.Unmarshal([]byte(input), &before); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &after); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("content changed:\nbefore %v\nafter  %v", before, after)
	}
}

func TestGormStoreContract(t *testing.T) {
	gdb, err := db.Open("sqlite", filepath.Join(t.TempDir(), "reservations.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s := NewGormStore(gdb)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	storeContract(t, s)
}

func TestRedisStoreContract(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	pool := NewRedisPool(addr)
	defer pool.Close()
	storeContract(t, NewRedisStore(pool, "test:reservations:"+t.Name(), discardLogger()))
}
