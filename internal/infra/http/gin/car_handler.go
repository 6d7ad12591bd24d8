package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentcars/internal/app/dto"
	availabilityapp "rentcars/internal/app/handlers/availability"
	catalogapp "rentcars/internal/app/handlers/catalog"
	"rentcars/internal/app/queries"
	"rentcars/internal/domain/shared/daterange"
)

type CarHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h CarHandler) List(c *gin.Context) {
	query := catalogapp.ListCarsQuery{
		Location:      c.Query("location"),
		Category:      c.Query("category"),
		OnlyAvailable: strings.EqualFold(c.Query("available"), "true"),
		PriceMinCents: parseCents(c.Query("min_price")),
		PriceMaxCents: parseCents(c.Query("max_price")),
		Limit:         parseIntWithDefault(c.Query("limit"), 0),
		Offset:        parseIntWithDefault(c.Query("offset"), 0),
	}
	result, err := queries.Ask[catalogapp.ListCarsQuery, dto.CarCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CarHandler) Get(c *gin.Context) {
	result, err := queries.Ask[catalogapp.GetCarQuery, dto.Car](c.Request.Context(), h.Queries, catalogapp.GetCarQuery{CarID: c.Param("id")})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability lists the blocked spans of a car. from/to are optional YYYY-MM-DD dates.
func (h CarHandler) Availability(c *gin.Context) {
	query := availabilityapp.GetCalendarQuery{CarID: c.Param("id")}
	for name, dst := range map[string]*time.Time{"from": &query.From, "to": &query.To} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		parsed, err := daterange.ParseDate(raw)
		if err != nil {
			writeError(c, h.Logger, err)
			return
		}
		*dst = parsed
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseCents(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

var _ CarHTTP = CarHandler{}
