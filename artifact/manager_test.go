package artifact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/delivery-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestManager(t *testing.T, gw ledger.Gateway) *Manager {
	t.Helper()
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(store, gw, nil)
}

func deliveredSnapshot() ledger.Invoice {
	return ledger.Invoice{
		ID:           "inv-1",
		Number:       "MOV0001",
		Supplier:     "Store A",
		Store:        "Store B",
		Status:       ledger.StatusDelivered,
		DeliveryDate: "2025-03-14",
		RawText:      "RIGA;Mozzarella;10;KG",
	}
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_WritesVerbatimContent(t *testing.T) {
	m := newTestManager(t, nil)
	snap := deliveredSnapshot()

	result, err := m.Generate(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, "MOV0001_2025-03-14_Store_A_B.txt", result.Filename)
	assert.Equal(t, len(snap.RawText), result.Size)
	assert.False(t, result.HasErrors)
	assert.False(t, result.Skipped)

	content, err := m.ReadContent(context.Background(), result.Filename)
	require.NoError(t, err)
	assert.Equal(t, snap.RawText, content.Content)
}

func TestGenerate_MissingFieldsRejected(t *testing.T) {
	m := newTestManager(t, nil)

	for _, mutate := range []func(*ledger.Invoice){
		func(s *ledger.Invoice) { s.Number = "" },
		func(s *ledger.Invoice) { s.DeliveryDate = "" },
		func(s *ledger.Invoice) { s.Supplier = "" },
	} {
		snap := deliveredSnapshot()
		mutate(&snap)
		_, err := m.Generate(context.Background(), snap)
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}
}

func TestGenerate_EmptyRawTextSkips(t *testing.T) {
	m := newTestManager(t, nil)
	snap := deliveredSnapshot()
	snap.RawText = "   \n  "

	result, err := m.Generate(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Filename)

	infos, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, infos, "no file may be written for a skipped artifact")
}

func TestGenerate_NotesFlagErrorsInFilename(t *testing.T) {
	m := newTestManager(t, nil)
	snap := deliveredSnapshot()
	snap.Notes = "2 crates damaged"

	result, err := m.Generate(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "MOV0001_2025-03-14_Store_A_B_ERRORI.txt", result.Filename)
	assert.True(t, result.HasErrors)

	// Content stays the raw text; the flag lives only in the name
	content, err := m.ReadContent(context.Background(), result.Filename)
	require.NoError(t, err)
	assert.Equal(t, snap.RawText, content.Content)
	assert.True(t, content.HasErrors)
}

func TestGenerate_RegenerationOverwrites(t *testing.T) {
	m := newTestManager(t, nil)
	snap := deliveredSnapshot()

	_, err := m.Generate(context.Background(), snap)
	require.NoError(t, err)

	snap.RawText = "RIGA;Mozzarella;12;KG"
	result, err := m.Generate(context.Background(), snap)
	require.NoError(t, err)

	content, err := m.ReadContent(context.Background(), result.Filename)
	require.NoError(t, err)
	assert.Equal(t, "RIGA;Mozzarella;12;KG", content.Content)

	infos, err := m.List()
	require.NoError(t, err)
	assert.Len(t, infos, 1, "regeneration must overwrite, not version")
}

// =============================================================================
// LIST / READ
// =============================================================================

func TestList_ExcludesBackupsAndForeignFiles(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(store, nil, nil)

	require.NoError(t, store.Write("MOV0001_2025-03-14_Store_A_B.txt", []byte("a")))
	require.NoError(t, store.Write("MOV0001_2025-03-14_Store_A_B.txt.backup.1741950000000", []byte("a")))
	require.NoError(t, store.Write("DELETED_old.txt.backup.1741950000000", []byte("b")))
	require.NoError(t, store.Write("notes.pdf", []byte("c")))

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "MOV0001_2025-03-14_Store_A_B.txt", infos[0].Name)
	assert.Equal(t, "2025-03-14", infos[0].Date)
}

func TestReadContent_UnknownFile(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.ReadContent(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, ledger.ErrArtifactNotFound)
}

func TestReadContent_TraversalRejected(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.ReadContent(context.Background(), "../../etc/passwd.txt")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestReadContent_ResolvesDiscrepancyNotes(t *testing.T) {
	// GIVEN: A ledger invoice with notes matching the artifact number
	gw := ledger.NewMemoryGateway()
	require.NoError(t, gw.AppendInvoices(context.Background(), []ledger.Invoice{
		{ID: "inv-1", Number: "MOV0001", Notes: "2 crates damaged"},
	}))
	m := newTestManager(t, gw)

	snap := deliveredSnapshot()
	snap.Notes = "2 crates damaged"
	result, err := m.Generate(context.Background(), snap)
	require.NoError(t, err)

	// WHEN: Reading the error-flagged artifact
	content, err := m.ReadContent(context.Background(), result.Filename)
	require.NoError(t, err)

	// THEN: The notes are resolved from the ledger
	assert.True(t, content.HasErrors)
	assert.Equal(t, "2 crates damaged", content.ErrorDetails)
}

// =============================================================================
// UPDATE / DELETE (backup-before-mutate)
// =============================================================================

func TestUpdateContent_BacksUpBeforeOverwriting(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(store, nil, nil)

	name := "MOV0001_2025-03-14_Store_A_B.txt"
	require.NoError(t, store.Write(name, []byte("original")))

	size, err := m.UpdateContent(name, "corrected")
	require.NoError(t, err)
	assert.Equal(t, len("corrected"), size)

	// New content in place
	data, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "corrected", string(data))

	// Backup holds the original bytes
	stats, err := store.List()
	require.NoError(t, err)
	var backupName string
	for _, st := range stats {
		if IsBackup(st.Name) {
			backupName = st.Name
		}
	}
	require.NotEmpty(t, backupName, "backup file must exist")
	assert.True(t, strings.HasPrefix(backupName, name+BackupMarker))
	backup, err := store.Read(backupName)
	require.NoError(t, err)
	assert.Equal(t, "original", string(backup))
}

func TestUpdateContent_UnknownFileLeavesNothingBehind(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(store, nil, nil)

	_, err = m.UpdateContent("missing.txt", "x")
	assert.ErrorIs(t, err, ledger.ErrArtifactNotFound)

	stats, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestDelete_LeavesDeletionBackup(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(store, nil, nil)

	name := "MOV0001_2025-03-14_Store_A_B.txt"
	require.NoError(t, store.Write(name, []byte("content")))

	require.NoError(t, m.Delete(name))

	// Original gone
	_, err = store.Read(name)
	assert.ErrorIs(t, err, ledger.ErrArtifactNotFound)

	// Deletion backup present with the original bytes
	stats, err := store.List()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.True(t, strings.HasPrefix(stats[0].Name, DeletedPrefix+name+BackupMarker))
	data, err := store.Read(stats[0].Name)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

// readOnlyStore fails every write, for backup-failure tests.
type readOnlyStore struct {
	Store
}

func (r *readOnlyStore) Write(string, []byte) error {
	return errors.New("read-only store")
}

func TestUpdateContent_AbortsWhenBackupFails(t *testing.T) {
	inner, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	name := "MOV0001_2025-03-14_Store_A_B.txt"
	require.NoError(t, inner.Write(name, []byte("original")))

	m := NewManager(&readOnlyStore{Store: inner}, nil, nil)

	_, err = m.UpdateContent(name, "new")
	require.Error(t, err)

	// The original is untouched
	data, err := inner.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
