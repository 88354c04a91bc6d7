package audit

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("database/rows/table/42", OperationUpdate, "ada@example.com", map[string]any{"id": 7})

	assert.NotEqual(t, event.EventID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "database/rows/table/42", event.Resource)
	assert.Equal(t, OperationUpdate, event.Operation)
	assert.WithinDuration(t, time.Now(), event.Timestamp, 5*time.Second)

	// two events never share an id
	other := NewEvent("database/rows/table/42", OperationUpdate, "ada@example.com", nil)
	assert.NotEqual(t, event.EventID, other.EventID)
}

func TestEventWireShape(t *testing.T) {
	event := NewEvent("database/rows/table/42", OperationCreate, "ada@example.com", nil)
	body, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "create", decoded["operation"])
	assert.Equal(t, "ada@example.com", decoded["identity"])
	assert.NotContains(t, decoded, "payload")
}

func TestNopNotifier(t *testing.T) {
	n := NopNotifier{}
	assert.NoError(t, n.Notify(context.Background(), NewEvent("r", OperationDelete, "", nil)))
	assert.NoError(t, n.Close())
}
