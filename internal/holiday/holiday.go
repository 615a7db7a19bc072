// Package holiday computes US federal holidays and seeds them as quests.
package holiday

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/api"
	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/category"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
)

const (
	CategoryName  = "Holidays"
	categoryColor = "#e11d48"

	minYear = 1900
	maxYear = 2999
)

var ErrInvalidYear = errors.New("invalid year")

type Holiday struct {
	Name string        `json:"name"`
	Date calendar.Date `json:"date"`
}

// USFederal lists the eleven federal holidays of year in calendar order.
func USFederal(year int) []Holiday {
	nth := func(m time.Month, wd time.Weekday, n int) calendar.Date {
		day, _ := calendar.NthWeekdayOfMonth(year, m, wd, n)
		return calendar.New(year, m, day)
	}
	fixed := func(m time.Month, day int) calendar.Date {
		return calendar.New(year, m, day)
	}

	return []Holiday{
		{"New Year's Day", fixed(time.January, 1)},
		{"MLK Jr. Day", nth(time.January, time.Monday, 3)},
		{"Washington's Birthday (Presidents Day)", nth(time.February, time.Monday, 3)},
		{"Memorial Day", nth(time.May, time.Monday, -1)},
		{"Juneteenth", fixed(time.June, 19)},
		{"Independence Day", fixed(time.July, 4)},
		{"Labor Day", nth(time.September, time.Monday, 1)},
		{"Columbus Day (Indigenous Peoples' Day)", nth(time.October, time.Monday, 2)},
		{"Veterans Day", fixed(time.November, 11)},
		{"Thanksgiving Day", nth(time.November, time.Thursday, 4)},
		{"Christmas Day", fixed(time.December, 25)},
	}
}

type SeedResult struct {
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	CategoryID string `json:"category_id"`
}

type Service struct {
	quests quest.Repo
	cats   *category.Service
	log    *logger.Logger
}

func NewService(quests quest.Repo, cats *category.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{quests: quests, cats: cats, log: log.With("service", "holiday")}
}

// Seed adds one all-day quest per holiday of year to the Holidays category.
// Holidays that already have a quest with the same name and date there are
// skipped, so seeding twice creates nothing new.
func (s *Service) Seed(ctx context.Context, year int) (SeedResult, error) {
	if err := checkYear(year); err != nil {
		return SeedResult{}, err
	}

	cat, err := s.cats.Ensure(ctx, CategoryName, categoryColor)
	if err != nil {
		return SeedResult{}, fmt.Errorf("ensure holidays category: %w", err)
	}
	res := SeedResult{CategoryID: cat.ID}

	existing, err := s.quests.List(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	seen := make(map[string]bool)
	for _, q := range existing {
		if q.CategoryID != nil && *q.CategoryID == cat.ID {
			seen[q.Name+"|"+q.DueDate.String()] = true
		}
	}

	for _, h := range USFederal(year) {
		if seen[h.Name+"|"+h.Date.String()] {
			res.Skipped++
			continue
		}
		catID := cat.ID
		_, err := s.quests.Create(ctx, quest.Quest{
			Name:       h.Name,
			Rank:       model.RankCommon,
			DueDate:    h.Date,
			Status:     model.StatusPending,
			CategoryID: &catID,
		})
		if err != nil {
			return res, fmt.Errorf("create %s quest: %w", h.Name, err)
		}
		res.Created++
	}

	s.log.Info("holidays_seeded", "year", year, "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/holidays/{year}", h.List)
	mux.HandleFunc("POST /api/holidays/{seed}", h.Seed)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err == nil {
		err = checkYear(year)
	}
	if err != nil {
		api.WriteErr(w, http.StatusBadRequest, "invalid year")
		return
	}
	api.WriteJSON(w, http.StatusOK, USFederal(year))
}

// Seed serves POST /api/holidays/seed-{year}.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.PathValue("seed"), "seed-")
	if !ok {
		api.WriteErr(w, http.StatusNotFound, "not found")
		return
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		api.WriteErr(w, http.StatusBadRequest, "invalid year")
		return
	}

	res, err := h.svc.Seed(r.Context(), year)
	switch {
	case errors.Is(err, ErrInvalidYear):
		api.WriteErr(w, http.StatusBadRequest, err.Error())
	case err != nil:
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
	default:
		api.WriteJSON(w, http.StatusOK, res)
	}
}
