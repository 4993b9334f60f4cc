package tests

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"staffing_platform/backoffice/services"
)

func TestAnnouncementCrud(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	create := map[string]string{"title": "Holiday schedule", "content": "No lectures next week."}

	if err := instructor.Post("/announcements").Json(create).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot post announcements: %v", err)
	}

	var announcement services.AnnouncementInfo
	if err := manager.Post("/announcements").Json(create).Do(&announcement); err != nil {
		t.Fatal(err)
	}
	if announcement.Title != "Holiday schedule" || announcement.AuthorId == nil || announcement.AuthorId.String() != manager.userId {
		t.Fatalf("invalid announcement %v", announcement)
	}

	err = manager.Post("/announcements").Json(map[string]string{"title": "no content"}).Do(nil)
	if statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("empty content should be rejected with 422: %v", err)
	}

	// Everyone can read announcements.
	var fetched services.AnnouncementInfo
	if err := instructor.Get("/announcements/" + announcement.Id.String()).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.Content != "No lectures next week." {
		t.Fatalf("invalid announcement %v", fetched)
	}

	if err := instructor.Patch("/announcements/"+announcement.Id.String()).Json(create).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot edit announcements: %v", err)
	}

	var updated services.AnnouncementInfo
	if err := manager.Patch("/announcements/"+announcement.Id.String()).Json(map[string]string{"title": "Updated schedule"}).Do(&updated); err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Updated schedule" || updated.Content != "No lectures next week." {
		t.Fatalf("partial update not applied correctly: %v", updated)
	}

	if err := manager.Delete("/announcements/" + announcement.Id.String()).Do(nil); err != nil {
		t.Fatal(err)
	}
	err = instructor.Get("/announcements/" + announcement.Id.String()).Do(nil)
	if statusOf(err) != http.StatusNotFound {
		t.Fatalf("deleted announcement should be gone: %v", err)
	}
}

func TestRecentAnnouncements(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		body := map[string]string{"title": fmt.Sprintf("announcement %d", i), "content": "content"}
		if err := manager.Post("/announcements").Json(body).Do(nil); err != nil {
			t.Fatal(err)
		}
	}

	var digests []services.AnnouncementDigest
	if err := instructor.Get("/announcements/recent").Do(&digests); err != nil {
		t.Fatal(err)
	}
	if len(digests) != 5 {
		t.Fatalf("recent digest should contain 5 entries, got %d", len(digests))
	}
	for i := 1; i < len(digests); i++ {
		if digests[i].CreatedAt.After(digests[i-1].CreatedAt) {
			t.Fatal("digest should be ordered newest first")
		}
	}
}
