package tests

import (
	"errors"
	"net/http"
	"testing"

	"staffing_platform/backoffice/services"
)

func (c *client) apply(t *testing.T, lecture services.LectureInfo, role string) services.ApplicationInfo {
	t.Helper()
	var application services.ApplicationInfo
	body := map[string]interface{}{"lecture_id": lecture.Id, "applied_role": role}
	if err := c.Post("/applications").Json(body).Do(&application); err != nil {
		t.Fatal(err)
	}
	return application
}

func TestApplicationWorkflow(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	lecture := manager.createLecture(t, "Robotics 101")

	application := instructor.apply(t, lecture, "main")
	if application.AssignmentStatus != "pending" || application.AppliedRole != "main" {
		t.Fatalf("invalid application %v", application)
	}

	// Same lecture, same role: rejected. Same lecture, other role: fine.
	body := map[string]interface{}{"lecture_id": lecture.Id, "applied_role": "main"}
	if err := instructor.Post("/applications").Json(body).Do(nil); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate application should fail with 409: %v", err)
	}
	instructor.apply(t, lecture, "assist")

	var applications []services.ApplicationInfo
	if err := manager.Get("/applications?lecture_id=" + lecture.Id.String()).Do(&applications); err != nil {
		t.Fatal(err)
	}
	if len(applications) != 2 {
		t.Fatalf("expected 2 applications, got %d", len(applications))
	}

	decision := map[string]string{"assignment_status": "assigned", "assigned_role": "main"}
	var decided services.ApplicationInfo
	if err := manager.Patch("/applications/"+application.Id.String()).Json(decision).Do(&decided); err != nil {
		t.Fatal(err)
	}
	if decided.AssignmentStatus != "assigned" || decided.AssignedRole != "main" {
		t.Fatalf("decision not applied: %v", decided)
	}

	// The decision notifies the applicant, referencing the lecture.
	var notifications []services.NotificationInfo
	if err := instructor.Get("/notifications").Do(&notifications); err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].LectureId == nil || *notifications[0].LectureId != lecture.Id || notifications[0].IsRead {
		t.Fatalf("invalid notification %v", notifications[0])
	}

	// Managers can walk a decision back to pending. The decode target must be
	// reset: assigned_role is omitted from the response when empty, which would
	// otherwise leave the previous value in place.
	reopen := map[string]string{"assignment_status": "pending"}
	decided = services.ApplicationInfo{}
	if err := manager.Patch("/applications/"+application.Id.String()).Json(reopen).Do(&decided); err != nil {
		t.Fatal(err)
	}
	if decided.AssignmentStatus != "pending" || decided.AssignedRole != "" {
		t.Fatalf("reopen not applied: %v", decided)
	}
}

func TestInstructorCannotDecideApplication(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	lecture := manager.createLecture(t, "Robotics 101")
	application := instructor.apply(t, lecture, "main")

	// A request touching the decision fields is rejected outright, including
	// the parts of it that would otherwise be allowed.
	sneaky := map[string]string{"applied_role": "assist", "assignment_status": "assigned"}
	err = instructor.Patch("/applications/" + application.Id.String()).Json(sneaky).Do(nil)
	if statusOf(err) != http.StatusUnprocessableEntity {
		t.Fatalf("instructor decision attempt should fail with 422: %v", err)
	}

	var fetched services.ApplicationInfo
	if err := instructor.Get("/applications/" + application.Id.String()).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.AppliedRole != "main" || fetched.AssignmentStatus != "pending" {
		t.Fatalf("rejected request must not be partially applied: %v", fetched)
	}

	// Without the decision fields the same change goes through.
	if err := instructor.Patch("/applications/"+application.Id.String()).Json(map[string]string{"applied_role": "assist"}).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.AppliedRole != "assist" {
		t.Fatalf("role change not applied: %v", fetched)
	}
}

func TestPortfolioSnapshotFrozenAtSubmission(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	if err := instructor.Patch("/me").Json(map[string]string{"portfolio_content": "portfolio v1"}).Do(nil); err != nil {
		t.Fatal(err)
	}

	lecture := manager.createLecture(t, "Robotics 101")
	application := instructor.apply(t, lecture, "main")
	if application.PortfolioSnapshot != "portfolio v1" {
		t.Fatalf("snapshot should capture the portfolio at submission: %v", application)
	}

	if err := instructor.Patch("/me").Json(map[string]string{"portfolio_content": "portfolio v2"}).Do(nil); err != nil {
		t.Fatal(err)
	}

	var fetched services.ApplicationInfo
	if err := manager.Get("/applications/" + application.Id.String()).Do(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.PortfolioSnapshot != "portfolio v1" {
		t.Fatalf("snapshot must not follow later profile edits: %v", fetched)
	}
}

func TestApplicationScoping(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	abc, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}
	xyz, err := env.newInstructor("xyz")
	if err != nil {
		t.Fatal(err)
	}

	lecture := manager.createLecture(t, "Robotics 101")
	abcApplication := abc.apply(t, lecture, "main")
	xyz.apply(t, lecture, "assist")

	// Managers cannot apply on behalf of instructors.
	body := map[string]interface{}{"lecture_id": lecture.Id, "applied_role": "main"}
	if err := manager.Post("/applications").Json(body).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("managers cannot submit applications: %v", err)
	}

	// Instructors only see their own applications, even with filters.
	var applications []services.ApplicationInfo
	if err := xyz.Get("/applications?lecture_id=" + lecture.Id.String()).Do(&applications); err != nil {
		t.Fatal(err)
	}
	if len(applications) != 1 || applications[0].UserId.String() != xyz.userId {
		t.Fatalf("instructor list should be scoped to own applications: %v", applications)
	}

	err = xyz.Get("/applications/" + abcApplication.Id.String()).Do(nil)
	if statusOf(err) != http.StatusNotFound {
		t.Fatalf("another instructor's application should look absent: %v", err)
	}

	err = xyz.Delete("/applications/" + abcApplication.Id.String()).Do(nil)
	if statusOf(err) != http.StatusNotFound {
		t.Fatalf("cannot withdraw another instructor's application: %v", err)
	}

	if err := manager.Get("/applications?applied_role=main").Do(&applications); err != nil {
		t.Fatal(err)
	}
	if len(applications) != 1 || applications[0].Id != abcApplication.Id {
		t.Fatalf("role filter returned wrong applications: %v", applications)
	}
}

func TestApplicationWithdrawal(t *testing.T) {
	env := setupTestEnv(t)

	manager, err := env.managerClient()
	if err != nil {
		t.Fatal(err)
	}
	instructor, err := env.newInstructor("abc")
	if err != nil {
		t.Fatal(err)
	}

	lecture := manager.createLecture(t, "Robotics 101")
	application := instructor.apply(t, lecture, "main")

	if err := manager.Delete("/applications/" + application.Id.String()).Do(nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("managers cannot withdraw applications: %v", err)
	}

	if err := instructor.Delete("/applications/" + application.Id.String()).Do(nil); err != nil {
		t.Fatal(err)
	}

	// Withdrawing frees the slot for a new application.
	instructor.apply(t, lecture, "main")
}
