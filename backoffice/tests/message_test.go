package tests

import (
	"net/http"
	"testing"

	"staffing_platform/backoffice/services"
)

func TestMessageBoxes(t *testing.T) {
	env := setupTestEnv(t)

	abc, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}
	xyz, err := env.newInstructor("xyz")
	if err != nil {
		t.Fatal(err)
	}

	var sent services.MessageInfo
	body := map[string]string{"recipient_id": xyz.userId, "content": "are you free on Friday?"}
	if err := abc.Post("/messages").Json(body).Do(&sent); err != nil {
		t.Fatal(err)
	}
	if sent.SenderId.String() != abc.userId || sent.RecipientId.String() != xyz.userId || sent.ReadAt != nil {
		t.Fatalf("invalid message %v", sent)
	}

	err = abc.Post("/messages").Json(map[string]string{"recipient_id": abc.userId, "content": "hi"}).Do(nil)
	if statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("self-messaging should be rejected with 422: %v", err)
	}

	var inbox []services.MessageInfo
	if err := xyz.Get("/messages").Do(&inbox); err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 || inbox[0].Content != "are you free on Friday?" {
		t.Fatalf("invalid inbox %v", inbox)
	}

	if err := abc.Get("/messages").Do(&inbox); err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 0 {
		t.Fatalf("sender's inbox should be empty: %v", inbox)
	}

	var outbox []services.MessageInfo
	if err := abc.Get("/messages?box=sent").Do(&outbox); err != nil {
		t.Fatal(err)
	}
	if len(outbox) != 1 || outbox[0].Id != sent.Id {
		t.Fatalf("invalid outbox %v", outbox)
	}

	if err := abc.Get("/messages?box=drafts").Do(nil); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("unknown box should be rejected: %v", err)
	}
}

func TestMessageReadReceipt(t *testing.T) {
	env := setupTestEnv(t)

	abc, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}
	xyz, err := env.newInstructor("xyz")
	if err != nil {
		t.Fatal(err)
	}
	other, err := env.newInstructor("other")
	if err != nil {
		t.Fatal(err)
	}

	var sent services.MessageInfo
	body := map[string]string{"recipient_id": xyz.userId, "content": "ping"}
	if err := abc.Post("/messages").Json(body).Do(&sent); err != nil {
		t.Fatal(err)
	}

	endpoint := "/messages/" + sent.Id.String()

	// Bystanders see nothing, and the sender's own reads leave no receipt.
	if err := other.Get(endpoint).Do(nil); statusOf(err) != http.StatusNotFound {
		t.Fatalf("non-participant should not see the message: %v", err)
	}

	var fetched services.MessageInfo
	if err := abc.Get(endpoint).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.ReadAt != nil {
		t.Fatalf("sender reads must not set the receipt: %v", fetched)
	}

	if err := xyz.Get(endpoint).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.ReadAt == nil {
		t.Fatalf("recipient read should set the receipt: %v", fetched)
	}
	firstRead := *fetched.ReadAt

	// The receipt records the first read only.
	if err := xyz.Get(endpoint).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.ReadAt == nil || !fetched.ReadAt.Equal(firstRead) {
		t.Fatalf("receipt must not change on later reads: %v", fetched)
	}
}
