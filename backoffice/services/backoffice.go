package services

import (
	"log"
	"net/http"
	"os"
	"staffing_platform/backoffice/auth"
	"staffing_platform/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	registrationMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_registrations_total",
		Help: "Total number of user registrations.",
	})

	loginMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_logins_total",
		Help: "Total number of successful logins.",
	})

	applicationSubmittedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_applications_submitted_total",
		Help: "Total number of lecture applications submitted.",
	})

	applicationDecidedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_applications_decided_total",
		Help: "Total number of lecture application decisions.",
	})
)

type Backoffice struct {
	user         UserService
	lecture      LectureService
	recruitment  RecruitmentService
	application  ApplicationService
	announcement AnnouncementService
	notification NotificationService
	message      MessageService

	db *gorm.DB
}

func NewBackoffice(db *gorm.DB, userAuth auth.IdentityProvider) Backoffice {
	return Backoffice{
		user:         UserService{db: db, userAuth: userAuth},
		lecture:      LectureService{db: db, userAuth: userAuth},
		recruitment:  RecruitmentService{db: db, userAuth: userAuth},
		application:  ApplicationService{db: db, userAuth: userAuth},
		announcement: AnnouncementService{db: db, userAuth: userAuth},
		notification: NotificationService{db: db, userAuth: userAuth},
		message:      MessageService{db: db, userAuth: userAuth},
		db:           db,
	}
}

func (b *Backoffice) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/auth", b.user.AuthRoutes())
	r.Mount("/me", b.user.MeRoutes())
	r.Mount("/users", b.user.Routes())
	r.Mount("/lectures", b.lecture.Routes())
	r.Mount("/recruitments", b.recruitment.Routes())
	r.Mount("/applications", b.application.Routes())
	r.Mount("/announcements", b.announcement.Routes())
	r.Mount("/notifications", b.notification.Routes())
	r.Mount("/messages", b.message.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}
