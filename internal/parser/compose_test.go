package parser

import (
	"reflect"
	"testing"

	"github.com/stackgen-cli/compose-pilot/internal/models"
)

func TestLoadBasicManifest(t *testing.T) {
	content := `services:
  api:
    image: node:18-alpine
    ports:
      - "3000:3000"
    environment:
      - NODE_ENV=development
      - DATABASE_URL=postgres://localhost/db
    volumes:
      - ./src:/app/src
    depends_on:
      - db
  db:
    image: postgres:16-alpine
    environment:
      POSTGRES_DB: mydb
      POSTGRES_USER: user
    volumes:
      - pgdata:/var/lib/postgresql/data

volumes:
  pgdata:

networks:
  backend:
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Services) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(m.Services))
	}

	api, ok := m.Services["api"]
	if !ok {
		t.Fatal("api service not found")
	}
	if api.Image != "node:18-alpine" {
		t.Errorf("Expected api image node:18-alpine, got %s", api.Image)
	}
	if len(api.Ports) != 1 {
		t.Errorf("Expected 1 port, got %d", len(api.Ports))
	}
	if got := api.Environment["NODE_ENV"]; got != "development" {
		t.Errorf("Expected NODE_ENV=development, got %s", got)
	}
	if got, ok := api.DependsOn.([]string); !ok || len(got) != 1 || got[0] != "db" {
		t.Errorf("Expected depends_on [db], got %v", api.DependsOn)
	}

	db := m.Services["db"]
	if db == nil {
		t.Fatal("db service not found")
	}
	if got := db.Environment["POSTGRES_DB"]; got != "mydb" {
		t.Errorf("Expected POSTGRES_DB=mydb, got %s", got)
	}

	// Bare top-level declarations still register their names.
	if _, ok := m.Volumes["pgdata"]; !ok {
		t.Errorf("Expected top-level volume pgdata, got %v", m.Volumes)
	}
	if _, ok := m.Networks["backend"]; !ok {
		t.Errorf("Expected top-level network backend, got %v", m.Networks)
	}
}

func TestLoadMissingServices(t *testing.T) {
	_, err := Load("volumes:\n  data:\n")
	if err == nil {
		t.Fatal("Expected error for manifest without services")
	}
	if !IsParseError(err) {
		t.Errorf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestLoadServicesNotMapping(t *testing.T) {
	_, err := Load("services:\n  - api\n  - db\n")
	if err == nil {
		t.Fatal("Expected error for list-valued services")
	}
	if !IsParseError(err) {
		t.Errorf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestLoadServiceNotMapping(t *testing.T) {
	_, err := Load("services:\n  api: just-a-string\n")
	if err == nil {
		t.Fatal("Expected error for scalar service entry")
	}
	if !IsParseError(err) {
		t.Errorf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestLoadLabelsKeepListShape(t *testing.T) {
	content := `services:
  a:
    image: img
    labels:
      - iobEnabled=true
      - tier=web
  b:
    image: img
    labels:
      tier: db
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got, ok := m.Services["a"].Labels.([]string); !ok {
		t.Errorf("Expected list labels to stay a list, got %T", m.Services["a"].Labels)
	} else if !reflect.DeepEqual(got, []string{"iobEnabled=true", "tier=web"}) {
		t.Errorf("Unexpected list labels: %v", got)
	}

	if got, ok := m.Services["b"].Labels.(map[string]string); !ok {
		t.Errorf("Expected map labels to stay a map, got %T", m.Services["b"].Labels)
	} else if got["tier"] != "db" {
		t.Errorf("Unexpected map labels: %v", got)
	}
}

func TestLoadPortObjectForm(t *testing.T) {
	content := `services:
  api:
    image: img
    ports:
      - target: 8080
        published: "80"
        protocol: tcp
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ports := m.Services["api"].Ports
	if len(ports) != 1 {
		t.Fatalf("Expected 1 port, got %d", len(ports))
	}
	spec, ok := ports[0].(*models.PortSpec)
	if !ok {
		t.Fatalf("Expected *PortSpec, got %T", ports[0])
	}
	if spec.Target != 8080 || spec.Published != "80" || spec.Protocol != "tcp" {
		t.Errorf("Unexpected port spec: %+v", spec)
	}
}

func TestLoadPortObjectNonNumericTarget(t *testing.T) {
	content := `services:
  api:
    image: img
    ports:
      - target: http
`
	_, err := Load(content)
	if err == nil {
		t.Fatal("Expected error for non-numeric port target")
	}
	if !IsParseError(err) {
		t.Errorf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestLoadHealthcheck(t *testing.T) {
	content := `services:
  with-test:
    image: img
    healthcheck:
      test: ["CMD", "curl", "-f", "http://localhost/"]
      interval: 30s
      retries: 3
  without-test:
    image: img
    healthcheck:
      interval: 30s
  odd-test:
    image: img
    healthcheck:
      test: {}
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	hc := m.Services["with-test"].Healthcheck
	if hc == nil {
		t.Fatal("Expected healthcheck")
	}
	if !reflect.DeepEqual(hc.Test, []string{"CMD", "curl", "-f", "http://localhost/"}) {
		t.Errorf("Unexpected test command: %v", hc.Test)
	}
	if hc.Interval != "30s" || hc.Retries != 3 {
		t.Errorf("Unexpected healthcheck fields: %+v", hc)
	}

	if m.Services["without-test"].Healthcheck != nil {
		t.Error("Healthcheck without test should be dropped")
	}

	odd := m.Services["odd-test"].Healthcheck
	if odd == nil || !reflect.DeepEqual(odd.Test, []string{"NONE"}) {
		t.Errorf("Expected default test [NONE], got %+v", odd)
	}
}

func TestLoadDependsOnForms(t *testing.T) {
	content := `services:
  bare:
    image: img
    depends_on: db
  conditional:
    image: img
    depends_on:
      db:
        condition: service_healthy
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got, ok := m.Services["bare"].DependsOn.([]string); !ok || !reflect.DeepEqual(got, []string{"db"}) {
		t.Errorf("Expected bare string to become [db], got %v", m.Services["bare"].DependsOn)
	}
	cond, ok := m.Services["conditional"].DependsOn.(map[string]any)
	if !ok {
		t.Fatalf("Expected condition map, got %T", m.Services["conditional"].DependsOn)
	}
	if _, ok := cond["db"]; !ok {
		t.Errorf("Expected db key in condition map, got %v", cond)
	}
}

func TestLoadExtensions(t *testing.T) {
	content := `x-defaults: &defaults
  restart: always

services:
  api:
    image: img
    x-owner: platform-team
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := m.Extensions["x-defaults"]; !ok {
		t.Errorf("Expected document-level x-defaults, got %v", m.Extensions)
	}
	if got := m.Services["api"].Extensions["x-owner"]; got != "platform-team" {
		t.Errorf("Expected service-level x-owner, got %v", got)
	}
}

func TestLoadBuildShorthand(t *testing.T) {
	content := `services:
  app:
    build: ./app
  full:
    build:
      context: .
      dockerfile: Dockerfile.dev
      args:
        - VERSION=1.2
`
	m, err := Load(content)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if b := m.Services["app"].Build; b == nil || b.Context != "./app" {
		t.Errorf("Expected build shorthand context ./app, got %+v", b)
	}
	full := m.Services["full"].Build
	if full == nil || full.Dockerfile != "Dockerfile.dev" {
		t.Fatalf("Unexpected build object: %+v", full)
	}
	if full.Args["VERSION"] != "1.2" {
		t.Errorf("Expected build arg VERSION=1.2, got %v", full.Args)
	}
}

func TestLoadPreParsedObject(t *testing.T) {
	src := map[string]any{
		"services": map[string]any{
			"api": map[string]any{
				"image":   "img",
				"command": []any{"sh", "-c", "run"},
			},
		},
	}
	m, err := Load(src)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	api := m.Services["api"]
	if api == nil || !reflect.DeepEqual(api.Command, []string{"sh", "-c", "run"}) {
		t.Errorf("Unexpected service from pre-parsed object: %+v", api)
	}
}
