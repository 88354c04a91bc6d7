package prefs

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresStoreSuite spins up a throwaway postgres container. Set
// SKIP_CONTAINER_TESTS to run the unit tests without docker.
type PostgresStoreSuite struct {
	suite.Suite
	container testcontainers.Container
	db        *DB
}

func TestPostgresStoreSuite(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable",
		host, port.Port())
	s.db, err = OpenWithSchema(dsn, "_prefs_unit_test_")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.ClearSchema()
		s.db.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(context.Background()))
	}
}

func (s *PostgresStoreSuite) TestReadWriteDelete() {
	store, err := NewPostgresStore(s.db, "gateway")
	s.Require().NoError(err)
	ctx := context.Background()

	var layout ColumnPrefs
	timestamp, err := store.Read(ctx, "missing", &layout)
	s.Require().NoError(err)
	s.True(timestamp.IsZero())

	written := ColumnPrefs{Order: []string{"B", "A"}, Widths: map[string]int{"A": 90}}
	now := time.Now()
	s.Require().NoError(store.Write(ctx, ColumnKey("ada@example.com", 42), written))

	var read ColumnPrefs
	timestamp, err = store.Read(ctx, ColumnKey("ada@example.com", 42), &read)
	s.Require().NoError(err)
	s.Equal(written, read)
	s.WithinDuration(now, timestamp, 10*time.Second)

	// overwrite updates value and timestamp
	written.Hidden = []string{"C"}
	s.Require().NoError(store.Write(ctx, ColumnKey("ada@example.com", 42), written))
	_, err = store.Read(ctx, ColumnKey("ada@example.com", 42), &read)
	s.Require().NoError(err)
	s.Equal([]string{"C"}, read.Hidden)

	s.Require().NoError(store.Delete(ctx, ColumnKey("ada@example.com", 42)))
	timestamp, err = store.Read(ctx, ColumnKey("ada@example.com", 42), &read)
	s.Require().NoError(err)
	s.True(timestamp.IsZero())
}

func (s *PostgresStoreSuite) TestPrefixIsolation() {
	ctx := context.Background()
	one, err := NewPostgresStore(s.db, "one")
	s.Require().NoError(err)
	two, err := NewPostgresStore(s.db, "two")
	s.Require().NoError(err)

	require.NoError(s.T(), one.Write(ctx, "key", ColumnPrefs{Order: []string{"A"}}))

	var read ColumnPrefs
	timestamp, err := two.Read(ctx, "key", &read)
	s.Require().NoError(err)
	s.True(timestamp.IsZero())
}
