package partition

import (
	"testing"

	"github.com/arkilian/splitter/pkg/types"
)

func TestRouteBySurnameInitial(t *testing.T) {
	router, err := NewRouter(DefaultRouterConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := types.Record{Surname: "Smith", Name: "John", Patronymic: "Allan", Phone: "555-1234"}
	if key := router.Route(rec); key != 'S' {
		t.Errorf("expected S, got %s", key)
	}

	task := router.Task(rec)
	if task.Key != 'S' || task.Record != rec {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestRouteEmptySurnameUsesSentinel(t *testing.T) {
	router, err := NewRouter(DefaultRouterConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := types.Record{Surname: "", Name: "John", Patronymic: "Allan", Phone: "555-1234"}
	if key := router.Route(rec); key != '#' {
		t.Errorf("expected #, got %s", key)
	}
}

func TestRouteIsCaseSensitive(t *testing.T) {
	router, err := NewRouter(DefaultRouterConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	upper := router.Route(types.Record{Surname: "Smith", Phone: "1"})
	lower := router.Route(types.Record{Surname: "smith", Phone: "1"})
	if upper == lower {
		t.Errorf("expected distinct keys for S and s, got %s for both", upper)
	}
}

func TestRouteMultibyteInitial(t *testing.T) {
	router, err := NewRouter(DefaultRouterConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := router.Route(types.Record{Surname: "Иванов", Phone: "1"})
	if key != 'И' {
		t.Errorf("expected И, got %s", key)
	}

	name, err := router.FileName(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "И.txt" {
		t.Errorf("expected И.txt, got %s", name)
	}
}

func TestFileNameRejectsSeparators(t *testing.T) {
	router, err := NewRouter(DefaultRouterConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []types.Key{'/', '\\', 0} {
		if _, err := router.FileName(key); err == nil {
			t.Errorf("expected error for key %q", key.String())
		}
	}
}

func TestNewRouterValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  RouterConfig
		wantErr bool
	}{
		{"default", DefaultRouterConfig(), false},
		{"custom sentinel", RouterConfig{SentinelKey: '_', Extension: ".csv"}, false},
		{"no dot", RouterConfig{SentinelKey: '#', Extension: "txt"}, true},
		{"separator in extension", RouterConfig{SentinelKey: '#', Extension: ".a/b"}, true},
		{"separator sentinel", RouterConfig{SentinelKey: '/', Extension: ".txt"}, true},
		{"zero sentinel", RouterConfig{Extension: ".txt"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRouter(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRouter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
