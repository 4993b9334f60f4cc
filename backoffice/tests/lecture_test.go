package tests

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"staffing_platform/backoffice/services"
)

func TestLectureAccessRequiresLogin(t *testing.T) {
	env := setupTestEnv(t)

	anonymous := env.newClient()

	var lectures []services.LectureInfo
	if err := anonymous.Get("/lectures").Do(&lectures); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unauthenticated list should be rejected: %v", err)
	}
}

func TestLectureCrud(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	create := map[string]interface{}{"title": "Robotics 101", "type": "general", "location": "Seoul"}

	if err := instructor.Post("/lectures").Json(create).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot create lectures: %v", err)
	}

	var lecture services.LectureInfo
	if err := manager.Post("/lectures").Json(create).Do(&lecture); err != nil {
		t.Fatal(err)
	}
	if lecture.Title != "Robotics 101" || lecture.Status != "recruiting" {
		t.Fatalf("invalid lecture %v", lecture)
	}
	if lecture.ManagerId == nil || lecture.ManagerId.String() != manager.userId {
		t.Fatalf("lecture should default to the creating manager: %v", lecture)
	}

	err = manager.Post("/lectures").Json(map[string]string{"title": "bad", "type": "seminar"}).Do(nil)
	if statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("unknown lecture type should be rejected with 422: %v", err)
	}

	// Instructors can browse and inspect lectures.
	var fetched services.LectureInfo
	if err := instructor.Get("/lectures/" + lecture.Id.String()).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.Id != lecture.Id {
		t.Fatalf("invalid lecture %v", fetched)
	}

	if err := instructor.Patch("/lectures/"+lecture.Id.String()).Json(map[string]string{"title": "x"}).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot update lectures: %v", err)
	}

	var updated services.LectureInfo
	if err := manager.Patch("/lectures/"+lecture.Id.String()).Json(map[string]string{"status": "allocating"}).Do(&updated); err != nil {
		t.Fatal(err)
	}
	if updated.Status != "allocating" {
		t.Fatalf("status update not applied: %v", updated)
	}

	if err := instructor.Delete("/lectures/" + lecture.Id.String()).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("instructors cannot delete lectures: %v", err)
	}
	if err := manager.Delete("/lectures/" + lecture.Id.String()).Do(nil); err != nil {
		t.Fatal(err)
	}
	if err := manager.Get("/lectures/" + lecture.Id.String()).Do(&fetched); statusOf(err) != http.StatusNotFound {
		t.Fatalf("deleted lecture should be gone: %v", err)
	}
}

func TestLectureFilters(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}

	for _, l := range []map[string]interface{}{
		{"title": "a", "type": "general", "status": "recruiting"},
		{"title": "b", "type": "camp", "status": "recruiting"},
		{"title": "c", "type": "camp", "status": "completed"},
	} {
		if err := manager.Post("/lectures").Json(l).Do(nil); err != nil {
			t.Fatal(err)
		}
	}

	var lectures []services.LectureInfo
	if err := manager.Get("/lectures?type=camp").Do(&lectures); err != nil {
		t.Fatal(err)
	}
	if len(lectures) != 2 {
		t.Fatalf("expected 2 camp lectures, got %d", len(lectures))
	}

	if err := manager.Get("/lectures?type=camp&status=completed").Do(&lectures); err != nil {
		t.Fatal(err)
	}
	if len(lectures) != 1 || lectures[0].Title != "c" {
		t.Fatalf("combined filter returned wrong lectures: %v", lectures)
	}

	if err := manager.Get("/lectures?manager_id=" + manager.userId).Do(&lectures); err != nil {
		t.Fatal(err)
	}
	if len(lectures) != 3 {
		t.Fatalf("expected 3 managed lectures, got %d", len(lectures))
	}

	if err := manager.Get("/lectures?status=cancelled").Do(&lectures); statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("unknown status filter should be rejected with 422: %v", err)
	}
}

func TestLectureCalendar(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}

	march := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)
	april := time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)

	for _, l := range []map[string]interface{}{
		{"title": "march lecture", "lecture_start_time": march},
		{"title": "april lecture", "lecture_start_time": april},
		{"title": "unscheduled lecture"},
	} {
		if err := manager.Post("/lectures").Json(l).Do(nil); err != nil {
			t.Fatal(err)
		}
	}

	var entries []services.CalendarEntry
	if err := manager.Get("/lectures/calendar").Do(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("calendar should only contain scheduled lectures, got %d", len(entries))
	}

	if err := manager.Get("/lectures/calendar?year=2026&month=3").Do(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Title != "march lecture" {
		t.Fatalf("month filter returned wrong entries: %v", entries)
	}

	if err := manager.Get("/lectures/calendar?month=3").Do(&entries); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("month without year should be rejected: %v", err)
	}
}
