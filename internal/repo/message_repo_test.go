package repo

import (
	"context"
	"testing"
	"time"

	"github.com/roomatch/go-roomatch-backend/internal/domain"
)

func TestCreateMessage_AssignsMonotoneIDs(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		m, err := CreateMessage(ctx, db, "u1", "u2", "hello", domain.MessageKindText)
		if err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
		if m.ID <= prev {
			t.Fatalf("IDs not monotone: %d after %d", m.ID, prev)
		}
		if m.Read {
			t.Fatal("new message should be unread")
		}
		prev = m.ID
	}
}

func TestListThreadPage_BothDirectionsNewestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	ctx := context.Background()

	// Alternate directions; a third user's traffic must stay out.
	for i := 0; i < 6; i++ {
		sender, receiver := "u1", "u2"
		if i%2 == 1 {
			sender, receiver = "u2", "u1"
		}
		if _, err := CreateMessage(ctx, db, sender, receiver, "m", domain.MessageKindText); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := CreateMessage(ctx, db, "u1", "u3", "other thread", domain.MessageKindText); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	page, err := ListThreadPage(ctx, db, "u1", "u2", 0, 4)
	if err != nil {
		t.Fatalf("ListThreadPage: %v", err)
	}
	if len(page) != 4 {
		t.Fatalf("page len = %d, want 4", len(page))
	}
	for i := 1; i < len(page); i++ {
		if page[i].ID >= page[i-1].ID {
			t.Fatalf("page not newest-first: %d before %d", page[i-1].ID, page[i].ID)
		}
	}

	total, err := CountThread(ctx, db, "u1", "u2")
	if err != nil || total != 6 {
		t.Fatalf("CountThread = %d err=%v, want 6", total, err)
	}

	// Out-of-range offset yields an empty page, not an error.
	empty, err := ListThreadPage(ctx, db, "u1", "u2", 100, 4)
	if err != nil || len(empty) != 0 {
		t.Fatalf("out-of-range page: %v err=%v", empty, err)
	}
}

func TestThreadStats_ChangesOnAppendAndMarkRead(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	ctx := context.Background()

	count, maxID, unread, err := ThreadStats(ctx, db, "u1", "u2")
	if err != nil || count != 0 || maxID != 0 || unread != 0 {
		t.Fatalf("empty thread stats = (%d, %d, %d) err=%v", count, maxID, unread, err)
	}

	m, err := CreateMessage(ctx, db, "u1", "u2", "hi", domain.MessageKindText)
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	// The unread figure is directional: the receiver sees 1, the sender 0.
	count, maxID, unread, err = ThreadStats(ctx, db, "u2", "u1")
	if err != nil {
		t.Fatalf("ThreadStats: %v", err)
	}
	if count != 1 || maxID != m.ID || unread != 1 {
		t.Fatalf("stats = (%d, %d, %d), want (1, %d, 1)", count, maxID, unread, m.ID)
	}
	if _, _, unread, err = ThreadStats(ctx, db, "u1", "u2"); err != nil || unread != 0 {
		t.Fatalf("sender unread = %d err=%v, want 0", unread, err)
	}

	// Marking the thread read changes the stats without an append.
	if _, err := MarkThreadRead(ctx, db, "u2", "u1"); err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}
	count, maxID, unread, err = ThreadStats(ctx, db, "u2", "u1")
	if err != nil {
		t.Fatalf("ThreadStats after mark: %v", err)
	}
	if count != 1 || maxID != m.ID || unread != 0 {
		t.Fatalf("stats after mark = (%d, %d, %d), want (1, %d, 0)", count, maxID, unread, m.ID)
	}
}

func TestMarkThreadRead_IdempotentAndDirectional(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	ctx := context.Background()

	// Three unread to u1 from u2, one in the opposite direction.
	for i := 0; i < 3; i++ {
		if _, err := CreateMessage(ctx, db, "u2", "u1", "m", domain.MessageKindText); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := CreateMessage(ctx, db, "u1", "u2", "reply", domain.MessageKindText); err != nil {
		t.Fatalf("seed: %v", err)
	}

	marked, err := MarkThreadRead(ctx, db, "u1", "u2")
	if err != nil || marked != 3 {
		t.Fatalf("MarkThreadRead = %d err=%v, want 3", marked, err)
	}

	// Second call is a no-op.
	marked, err = MarkThreadRead(ctx, db, "u1", "u2")
	if err != nil || marked != 0 {
		t.Fatalf("repeat MarkThreadRead = %d err=%v, want 0", marked, err)
	}

	// The opposite direction stays unread.
	n, err := CountUnreadFrom(ctx, db, "u2", "u1")
	if err != nil || n != 1 {
		t.Fatalf("CountUnreadFrom(u2, u1) = %d err=%v, want 1", n, err)
	}
}

func TestCountUnread_TotalsAcrossThreads(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	ctx := context.Background()

	for _, sender := range []string{"u2", "u3", "u3"} {
		if _, err := CreateMessage(ctx, db, sender, "u1", "m", domain.MessageKindText); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := CountUnread(ctx, db, "u1")
	if err != nil || n != 3 {
		t.Fatalf("CountUnread = %d err=%v, want 3", n, err)
	}

	if _, err := MarkThreadRead(ctx, db, "u1", "u3"); err != nil {
		t.Fatalf("MarkThreadRead: %v", err)
	}
	n, err = CountUnread(ctx, db, "u1")
	if err != nil || n != 1 {
		t.Fatalf("CountUnread after mark = %d err=%v, want 1", n, err)
	}
}

func TestListUserMessages_NewestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	seed := []domain.Message{
		{SenderID: "u1", ReceiverID: "u2", Body: "a", Kind: "text", CreatedAt: base},
		{SenderID: "u3", ReceiverID: "u1", Body: "b", Kind: "text", CreatedAt: base.Add(time.Minute)},
		{SenderID: "u4", ReceiverID: "u5", Body: "c", Kind: "text", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := ListUserMessages(ctx, db, "u1")
	if err != nil {
		t.Fatalf("ListUserMessages: %v", err)
	}
	if len(got) != 2 || got[0].Body != "b" || got[1].Body != "a" {
		t.Fatalf("unexpected scan: %+v", got)
	}
}
