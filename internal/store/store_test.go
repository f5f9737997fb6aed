package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/vchat/internal/conversation"
	"github.com/shopspring/decimal"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + sync_state)", result.Version)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := testDB(t)

	result, err := db.MigrateTo(1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Version != 1 || !result.Changed {
		t.Fatalf("result = %+v, want version 1 changed", result)
	}
	if _, err := db.GetCheckpoint("iAlice", "last_poll_at"); err == nil {
		t.Error("sync_state should be gone at version 1")
	}

	result, err = db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2", result.Version)
	}
	if err := db.UpdateCheckpoint("iAlice", "last_poll_at", "1"); err != nil {
		t.Errorf("checkpoint after re-migrate: %v", err)
	}
}

func TestOpenRestrictsPermissions(t *testing.T) {
	db := testDB(t)

	info, err := os.Stat(db.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("db mode = %o, want 600", perm)
	}
}

func TestPersistencePreference(t *testing.T) {
	db := testDB(t)

	on, err := db.GetPersistence("alice@")
	if err != nil {
		t.Fatal(err)
	}
	if on {
		t.Error("persistence should default to off")
	}

	if err := db.SetPersistence("alice@", true); err != nil {
		t.Fatal(err)
	}
	on, _ = db.GetPersistence("alice@")
	if !on {
		t.Error("persistence = false after enabling")
	}

	// Preferences are per identity.
	other, _ := db.GetPersistence("carol@")
	if other {
		t.Error("preference leaked to another identity")
	}

	if err := db.SetPersistence("alice@", false); err != nil {
		t.Fatal(err)
	}
	on, _ = db.GetPersistence("alice@")
	if on {
		t.Error("persistence = true after disabling")
	}
}

func TestConversationsRoundTrip(t *testing.T) {
	db := testDB(t)

	convs := []conversation.Conversation{
		{ID: "bob@", Name: "bob@", Address: "zs1bob", Unread: true},
		{ID: "carol@", Name: "carol@", Address: "zs1carol"},
	}
	if err := db.SaveConversations("alice@", convs); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadConversations("alice@")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != convs[0] || got[1] != convs[1] {
		t.Errorf("got %+v, want %+v", got, convs)
	}

	// Saving replaces the set.
	if err := db.SaveConversations("alice@", convs[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = db.LoadConversations("alice@")
	if len(got) != 1 {
		t.Errorf("got %d conversations after replace, want 1", len(got))
	}

	others, _ := db.LoadConversations("dave@")
	if len(others) != 0 {
		t.Errorf("another identity sees %d conversations", len(others))
	}
}

func TestMessagesKeepOrderAndFields(t *testing.T) {
	db := testDB(t)

	msgs := []conversation.Message{
		{ID: "local-1", Sender: conversation.Self, Text: "later", Direction: conversation.Sent,
			Amount: decimal.Zero, Timestamp: 2000, Status: conversation.StatusFailed, Error: "insufficient funds"},
		{ID: "tx1", Sender: "bob@", Text: "hi", Direction: conversation.Received,
			Amount: decimal.RequireFromString("0.5"), Timestamp: 1000, Confirmations: 3},
		{ID: "local-0", Sender: conversation.Self, Text: "ok", Direction: conversation.Sent,
			Amount: decimal.Zero, Timestamp: 1000, Status: conversation.StatusSent, TxID: "opid-1"},
	}
	if err := db.SaveMessages("alice@", "bob@", msgs); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadMessages("alice@", "bob@")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(msgs) {
		t.Fatalf("got %d messages, want %d", len(got), len(msgs))
	}
	for i := range msgs {
		want, have := msgs[i], got[i]
		if have.ID != want.ID || have.Direction != want.Direction || have.Status != want.Status ||
			have.TxID != want.TxID || have.Error != want.Error || have.Confirmations != want.Confirmations ||
			!have.Amount.Equal(want.Amount) {
			t.Errorf("message %d = %+v, want %+v", i, have, want)
		}
	}

	all, err := db.LoadAllMessages("alice@")
	if err != nil {
		t.Fatal(err)
	}
	// No conversation row was saved, so nothing is reachable through it.
	if len(all) != 0 {
		t.Errorf("LoadAllMessages returned %d conversations, want 0", len(all))
	}
}

func TestIdentityWithSeparatorsDoesNotCollide(t *testing.T) {
	db := testDB(t)

	m := []conversation.Message{{ID: "tx", Sender: "x@", Direction: conversation.Received, Amount: decimal.Zero}}
	if err := db.SaveMessages("a:b@", "c@", m); err != nil {
		t.Fatal(err)
	}
	got, _ := db.LoadMessages("a@", "b:c@")
	if len(got) != 0 {
		t.Errorf("keys collided: got %d messages", len(got))
	}
}

func TestCheckpoint(t *testing.T) {
	db := testDB(t)

	v, err := db.GetCheckpoint("alice@", "last_poll")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Errorf("missing checkpoint = %q, want empty", v)
	}

	if err := db.UpdateCheckpoint("alice@", "last_poll", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateCheckpoint("alice@", "last_poll", "2"); err != nil {
		t.Fatal(err)
	}
	v, _ = db.GetCheckpoint("alice@", "last_poll")
	if v != "2" {
		t.Errorf("checkpoint = %q, want 2", v)
	}
}

func TestDeleteAllChatData(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"alice@", "carol@"} {
		if err := db.SetPersistence(id, true); err != nil {
			t.Fatal(err)
		}
		if err := db.SaveConversations(id, []conversation.Conversation{{ID: "bob@", Name: "bob@"}}); err != nil {
			t.Fatal(err)
		}
		if err := db.SaveMessages(id, "bob@", []conversation.Message{{ID: "tx", Sender: "bob@", Direction: conversation.Received, Amount: decimal.Zero}}); err != nil {
			t.Fatal(err)
		}
		if err := db.UpdateCheckpoint(id, "k", "v"); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.DeleteAllChatData("alice@"); err != nil {
		t.Fatal(err)
	}

	if on, _ := db.GetPersistence("alice@"); on {
		t.Error("preference survived delete")
	}
	if convs, _ := db.LoadConversations("alice@"); len(convs) != 0 {
		t.Error("conversations survived delete")
	}
	if msgs, _ := db.LoadMessages("alice@", "bob@"); len(msgs) != 0 {
		t.Error("messages survived delete")
	}
	if v, _ := db.GetCheckpoint("alice@", "k"); v != "" {
		t.Error("checkpoint survived delete")
	}

	// Other identities are untouched.
	all, err := db.LoadAllMessages("carol@")
	if err != nil {
		t.Fatal(err)
	}
	if len(all["bob@"]) != 1 {
		t.Errorf("carol@ lost data: %+v", all)
	}
}

func TestDBSatisfiesPersister(t *testing.T) {
	var _ conversation.Persister = testDB(t)
}
