package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/core"
	"invoicer/internal/invoice"
	"invoicer/internal/log"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(10, time.Hour, log.Discard())
	info := m.Create(context.Background(), "alice")
	require.NotEmpty(t, info.ID)
	assert.Len(t, info.Invoice.Items, 1)

	got, err := m.Get(info.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)

	_, err = m.Get(info.ID, "mallory")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get("missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAppliesAndReportsErrors(t *testing.T) {
	m := NewManager(10, time.Hour, log.Discard())
	info := m.Create(context.Background(), "")
	itemID := info.Invoice.Items[0].ID

	got, err := m.Update(info.ID, "", func(inv *invoice.Invoice) error {
		return inv.UpdateField(itemID, invoice.FieldRate, "12.50")
	})
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.Invoice.Total.String())

	_, err = m.Update(info.ID, "", func(inv *invoice.Invoice) error {
		return inv.RemoveItem(itemID)
	})
	assert.ErrorIs(t, err, core.ErrLastItem)

	got, err = m.Get(info.ID, "")
	require.NoError(t, err)
	assert.Len(t, got.Invoice.Items, 1)
}

func TestFinishEndsOnlyOnSuccess(t *testing.T) {
	m := NewManager(10, time.Hour, log.Discard())
	info := m.Create(context.Background(), "bob")

	err := m.Finish(info.ID, "bob", func(invoice.Snapshot) error { return errors.New("render failed") })
	require.Error(t, err)
	_, err = m.Get(info.ID, "bob")
	require.NoError(t, err, "failed finish keeps the session")

	require.NoError(t, m.Finish(info.ID, "bob", func(invoice.Snapshot) error { return nil }))
	_, err = m.Get(info.ID, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestEndDiscards(t *testing.T) {
	m := NewManager(10, time.Hour, log.Discard())
	info := m.Create(context.Background(), "")
	require.NoError(t, m.End(info.ID, ""))
	assert.ErrorIs(t, m.End(info.ID, ""), ErrNotFound)
	_, err := m.Update(info.ID, "", func(*invoice.Invoice) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapacityEvictsOldest(t *testing.T) {
	m := NewManager(2, time.Hour, log.Discard())
	first := m.Create(context.Background(), "")
	m.Create(context.Background(), "")
	m.Create(context.Background(), "")
	_, err := m.Get(first.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, m.Len())
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	m := NewManager(10, time.Hour, log.Discard())
	info := m.Create(context.Background(), "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(info.ID, "", func(inv *invoice.Invoice) error {
				inv.AddItem()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Get(info.ID, "")
	require.NoError(t, err)
	assert.Len(t, got.Invoice.Items, 51)
}
