package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/regional-weather-aggregation/internal/store"
	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

var validate = validator.New()

// Service is the part of weather.Service the API reads from.
type Service interface {
	Regions() []string
	GetRange(region string, from, to time.Time) ([]weather.RegionDayAggregate, error)
	Stations(region string) ([]weather.Station, error)
	LoadStore() (int, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/regions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"regions": service.Regions(),
		})
	})

	v1.Get("/stations", func(c *fiber.Ctx) error {
		region := strings.TrimSpace(c.Query("state"))

		stations, err := service.Stations(region)
		if err != nil {
			if errors.Is(err, weather.ErrMissingInput) {
				return fiber.NewError(fiber.StatusNotFound, "station catalog has not been built")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read station catalog")
		}

		return c.JSON(fiber.Map{
			"state":    region,
			"count":    len(stations),
			"stations": stations,
		})
	})

	v1.Get("/aggregates", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		aggs, err := service.GetRange(req.State, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather aggregates for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather aggregates")
		}

		return c.JSON(fiber.Map{
			"state":      req.State,
			"from":       req.From.Format(store.DateLayout),
			"to":         req.To.Format(store.DateLayout),
			"aggregates": aggs,
		})
	})

	v1.Post("/reload", func(c *fiber.Ctx) error {
		n, err := service.LoadStore()
		if err != nil {
			if errors.Is(err, weather.ErrMissingInput) {
				return fiber.NewError(fiber.StatusNotFound, "aggregate file has not been written")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to reload aggregates")
		}

		return c.JSON(fiber.Map{
			"loaded": n,
		})
	})
}

// rangeQuery holds query parameters for the aggregates endpoint.
type rangeQuery struct {
	State string    `validate:"required,alphanum"`
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	q.State = strings.TrimSpace(c.Query("state"))

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseDate(fromStr)
	if err != nil {
		return err
	}
	to, err := parseDate(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return nil
}

// parseDate accepts YYYY-MM-DD or the provider's YYYYMMDD form.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(store.DateLayout, s); err == nil {
		return d, nil
	}
	if d, err := time.Parse("20060102", s); err == nil {
		return d, nil
	}
	return time.Time{}, errors.New("invalid date format; use YYYY-MM-DD or YYYYMMDD")
}
