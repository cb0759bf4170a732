package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"retailorders/internal/task"
	"retailorders/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ImporterMock struct{ mock.Mock }

func (m *ImporterMock) ApplyImport(ctx context.Context, p task.ImportPayload) (int, error) {
	args := m.Called(ctx, p)
	return args.Int(0), args.Error(1)
}

func newWorker(imp worker.Importer) *worker.Worker {
	return worker.New(slog.New(slog.NewTextHandler(io.Discard, nil)), imp)
}

func TestHandle_DoImport_CallsImporter(t *testing.T) {
	imp := new(ImporterMock)
	payload := task.ImportPayload{
		RequestedBy: 1,
		Rows: []task.ImportRow{
			{StoreID: 1, Name: "Pen", Price: decimal.RequireFromString("1.50"), Stock: 3},
		},
	}
	tk, err := task.New(task.TypeDoImport, payload)
	require.NoError(t, err)

	imp.On("ApplyImport", mock.Anything, mock.MatchedBy(func(p task.ImportPayload) bool {
		return p.RequestedBy == 1 && len(p.Rows) == 1 && p.Rows[0].Name == "Pen" && p.Rows[0].Price.Equal(decimal.RequireFromString("1.5"))
	})).Return(1, nil).Once()

	require.NoError(t, newWorker(imp).Handle(context.Background(), tk))
	imp.AssertExpectations(t)
}

func TestHandle_DoImport_PropagatesError(t *testing.T) {
	imp := new(ImporterMock)
	tk, err := task.New(task.TypeDoImport, task.ImportPayload{RequestedBy: 1})
	require.NoError(t, err)

	imp.On("ApplyImport", mock.Anything, mock.Anything).Return(0, errors.New("boom")).Once()

	err = newWorker(imp).Handle(context.Background(), tk)
	assert.EqualError(t, err, "boom")
}

func TestHandle_LogOnlyTasks(t *testing.T) {
	imp := new(ImporterMock)
	w := newWorker(imp)

	email, err := task.New(task.TypeSendEmail, task.SendEmailPayload{To: "u@example.com", Subject: "Order 1"})
	require.NoError(t, err)
	thumbs, err := task.New(task.TypeGenerateThumbnails, task.ThumbnailsPayload{ProductID: 1, Image: "a.png", Aliases: task.DefaultThumbnailAliases})
	require.NoError(t, err)

	assert.NoError(t, w.Handle(context.Background(), email))
	assert.NoError(t, w.Handle(context.Background(), thumbs))
	imp.AssertNotCalled(t, "ApplyImport", mock.Anything, mock.Anything)
}

func TestHandle_UnknownTypeAndBadPayload(t *testing.T) {
	w := newWorker(new(ImporterMock))

	err := w.Handle(context.Background(), task.Task{ID: "x", Type: "resize_everything", Payload: []byte(`{}`)})
	assert.Error(t, err)

	err = w.Handle(context.Background(), task.Task{ID: "y", Type: task.TypeDoImport, Payload: []byte(`not-json`)})
	assert.Error(t, err)
}
