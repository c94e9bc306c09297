package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flybeeper/radarsim/internal/analysis"
	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/repository"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// Simulation операции контроллера, доступные через HTTP
type Simulation interface {
	Snapshot() *service.Snapshot
	Subscribe() (<-chan *service.Snapshot, func())
	World() *world.World

	ToggleRadar(ctx context.Context, id string) (models.Radar, error)
	BulkOutage(ctx context.Context, fraction float64) ([]string, error)
	AddRadar(ctx context.Context, req sim.NewRadar) (models.Radar, error)
	RemoveRadar(ctx context.Context, id string) error
	DeactivateRadars(ctx context.Context, ids []string) (int, error)
	LoadDefaultRadars(ctx context.Context) error
	SetFinancialConfig(ctx context.Context, fc models.FinancialConfig) error
	SetSpeed(ctx context.Context, speed float64) error
	SetRunning(ctx context.Context, running bool) error
	Step(ctx context.Context, hours float64) (sim.TickReport, error)

	LiveReport() *models.SimulationResult
	RadarsTracking(aircraftID string) ([]models.Radar, bool)
	AircraftVisibleBy(radarID string) ([]models.Aircraft, bool)

	StartAnalysis(days int) (service.JobInfo, error)
	Job(id string) (service.JobInfo, error)
	Jobs() []service.JobInfo
	CancelJob(id string) error
	LastAnalysis() *models.SimulationResult
	FindRedundant(ctx context.Context) (*analysis.RedundancyResult, error)
}

var _ Simulation = (*service.Controller)(nil)

// RadarStore внешний кэш: гео-поиск радаров и последний отчет
type RadarStore interface {
	RadarsNear(ctx context.Context, center models.Point, radiusKM float64) ([]repository.RadarHit, error)
	LatestReport(ctx context.Context) (*models.SimulationResult, error)
}

// RESTHandler обработчик REST API endpoints
type RESTHandler struct {
	sim     Simulation
	store   RadarStore
	logger  *utils.Logger
	timeout time.Duration
}

// NewRESTHandler создает REST handler. store может быть nil.
func NewRESTHandler(s Simulation, store RadarStore, logger *utils.Logger) *RESTHandler {
	return &RESTHandler{
		sim:     s,
		store:   store,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// commandError переводит ошибку команды в HTTP ответ
func (h *RESTHandler) commandError(c *gin.Context, command string, err error) {
	metrics.ObserveCommand("http", command, err)

	switch {
	case errors.Is(err, sim.ErrRadarNotFound), errors.Is(err, service.ErrJobNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrAnalysisRunning):
		respondError(c, http.StatusConflict, "analysis_running", err.Error())
	case errors.Is(err, sim.ErrInsufficientFunds), errors.Is(err, sim.ErrRadarCapacity):
		respondError(c, http.StatusConflict, "game_rule_violation", err.Error())
	case errors.Is(err, sim.ErrInvalidFraction), errors.Is(err, analysis.ErrInvalidDays), errors.Is(err, service.ErrInvalidSpeed):
		respondError(c, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, service.ErrStopped):
		respondError(c, http.StatusServiceUnavailable, "stopped", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "timeout", "Command timed out")
	default:
		h.logger.WithField("command", command).WithField("error", err).Error("Command failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "Command failed")
	}
}

func (h *RESTHandler) ok(c *gin.Context, command string, status int, v interface{}) {
	metrics.ObserveCommand("http", command, nil)
	respond(c, status, v)
}

func (h *RESTHandler) commandContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// ==================== Чтение ====================

// GetSnapshot возвращает последний снимок симуляции
// GET /api/v1/snapshot
func (h *RESTHandler) GetSnapshot(c *gin.Context) {
	respond(c, http.StatusOK, h.sim.Snapshot())
}

// GetAirports возвращает аэропорты с текущим покрытием
// GET /api/v1/airports
func (h *RESTHandler) GetAirports(c *gin.Context) {
	airports := h.sim.Snapshot().State.Airports
	respond(c, http.StatusOK, gin.H{
		"airports": airports,
		"count":    len(airports),
	})
}

// GetRadars возвращает радары
// GET /api/v1/radars?active=true
func (h *RESTHandler) GetRadars(c *gin.Context) {
	radars := h.sim.Snapshot().State.Radars
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_active", "active must be true or false")
			return
		}
		filtered := make([]models.Radar, 0, len(radars))
		for _, r := range radars {
			if r.IsActive == active {
				filtered = append(filtered, r)
			}
		}
		radars = filtered
	}
	respond(c, http.StatusOK, gin.H{
		"radars": radars,
		"count":  len(radars),
	})
}

// GetRadarsNear ищет радары в радиусе через гео-индекс Redis
// GET /api/v1/radars/near?lat=51.5&lng=-0.1&radius_km=500
func (h *RESTHandler) GetRadarsNear(c *gin.Context) {
	if h.store == nil {
		respondError(c, http.StatusServiceUnavailable, "cache_disabled", "Radar geo index requires Redis")
		return
	}

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		respondError(c, http.StatusBadRequest, "invalid_latitude", "Latitude must be between -90 and 90")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		respondError(c, http.StatusBadRequest, "invalid_longitude", "Longitude must be between -180 and 180")
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "500"), 64)
	if err != nil || radius <= 0 || radius > 5000 {
		respondError(c, http.StatusBadRequest, "invalid_radius", "Radius must be between 0 and 5000 km")
		return
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	hits, err := h.store.RadarsNear(ctx, models.Point{Lat: lat, Lng: lng}, radius)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to search radars")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to search radars")
		return
	}
	respond(c, http.StatusOK, gin.H{
		"radars": hits,
		"count":  len(hits),
	})
}

// GetRadarAircraft суда в зоне радара
// GET /api/v1/radars/:id/aircraft
func (h *RESTHandler) GetRadarAircraft(c *gin.Context) {
	aircraft, ok := h.sim.AircraftVisibleBy(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "Radar not found")
		return
	}
	respond(c, http.StatusOK, gin.H{
		"aircraft": aircraft,
		"count":    len(aircraft),
	})
}

// GetAircraft возвращает суда в полете
// GET /api/v1/aircraft?bounds=swLat,swLng,neLat,neLng&visibility=lost
func (h *RESTHandler) GetAircraft(c *gin.Context) {
	var sw, ne *models.Point
	if b := c.Query("bounds"); b != "" {
		s, n, err := parseBounds(b)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_bounds", err.Error())
			return
		}
		sw, ne = &s, &n
	}

	visibility := models.Visibility(c.Query("visibility"))
	if visibility != "" && visibility != models.VisibilityTracked && visibility != models.VisibilityLost {
		respondError(c, http.StatusBadRequest, "invalid_visibility", "visibility must be tracked or lost")
		return
	}

	aircraft := filterAircraft(h.sim.Snapshot().State.Aircraft, sw, ne, visibility)
	respond(c, http.StatusOK, gin.H{
		"aircraft": aircraft,
		"count":    len(aircraft),
	})
}

// GetAircraftRadars радары, сопровождающие судно
// GET /api/v1/aircraft/:id/radars
func (h *RESTHandler) GetAircraftRadars(c *gin.Context) {
	radars, ok := h.sim.RadarsTracking(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "Aircraft not found")
		return
	}
	respond(c, http.StatusOK, gin.H{
		"radars": radars,
		"count":  len(radars),
	})
}

// GetLiveReport отчет по живым метрикам
// GET /api/v1/report/live
func (h *RESTHandler) GetLiveReport(c *gin.Context) {
	respond(c, http.StatusOK, h.sim.LiveReport())
}

// GetCostBreakdown сводка доходов и затрат в фиксированном порядке
// GET /api/v1/report/costs?source=live|analysis
func (h *RESTHandler) GetCostBreakdown(c *gin.Context) {
	var report *models.SimulationResult
	switch c.DefaultQuery("source", "live") {
	case "live":
		report = h.sim.LiveReport()
	case "analysis":
		report = h.lastReport(c)
		if report == nil {
			respondError(c, http.StatusNotFound, "not_found", "No analysis has completed yet")
			return
		}
	default:
		respondError(c, http.StatusBadRequest, "invalid_source", "source must be live or analysis")
		return
	}
	respond(c, http.StatusOK, report.CostBreakdown())
}

func (h *RESTHandler) lastReport(c *gin.Context) *models.SimulationResult {
	if report := h.sim.LastAnalysis(); report != nil {
		return report
	}
	if h.store == nil {
		return nil
	}
	ctx, cancel := h.commandContext(c)
	defer cancel()
	report, err := h.store.LatestReport(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.WithField("error", err).Warn("Failed to load cached report")
		}
		return nil
	}
	return report
}

// GetLastAnalysis последний результат пакетного анализа
// GET /api/v1/analysis/last
func (h *RESTHandler) GetLastAnalysis(c *gin.Context) {
	report := h.lastReport(c)
	if report == nil {
		respondError(c, http.StatusNotFound, "not_found", "No analysis has completed yet")
		return
	}
	respond(c, http.StatusOK, report)
}

// GetJobs история задач анализа
// GET /api/v1/analysis/jobs
func (h *RESTHandler) GetJobs(c *gin.Context) {
	jobs := h.sim.Jobs()
	respond(c, http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJob состояние задачи анализа
// GET /api/v1/analysis/jobs/:id
func (h *RESTHandler) GetJob(c *gin.Context) {
	info, err := h.sim.Job(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", err.Error())
		return
	}
	respond(c, http.StatusOK, info)
}

// ==================== Команды ====================

// StartAnalysis запускает пакетный анализ
// POST /api/v1/analysis/jobs {"days": 30} или {"period": "year"}
func (h *RESTHandler) StartAnalysis(c *gin.Context) {
	var req StartAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	days, err := req.ResolveDays()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	info, err := h.sim.StartAnalysis(days)
	if err != nil {
		h.commandError(c, "start_analysis", err)
		return
	}
	c.Header("Location", "/api/v1/analysis/jobs/"+info.ID)
	h.ok(c, "start_analysis", http.StatusAccepted, info)
}

// CancelJob отменяет задачу анализа
// DELETE /api/v1/analysis/jobs/:id
func (h *RESTHandler) CancelJob(c *gin.Context) {
	if err := h.sim.CancelJob(c.Param("id")); err != nil {
		h.commandError(c, "cancel_analysis", err)
		return
	}
	metrics.ObserveCommand("http", "cancel_analysis", nil)
	c.Status(http.StatusNoContent)
}

// FindRedundant ищет избыточные радары
// POST /api/v1/analysis/redundancy
func (h *RESTHandler) FindRedundant(c *gin.Context) {
	ctx, cancel := h.commandContext(c)
	defer cancel()

	res, err := h.sim.FindRedundant(ctx)
	if err != nil {
		h.commandError(c, "find_redundant", err)
		return
	}
	h.ok(c, "find_redundant", http.StatusOK, res)
}

// AddRadar добавляет радар
// POST /api/v1/radars
func (h *RESTHandler) AddRadar(c *gin.Context) {
	var req AddRadarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	radar, err := h.sim.AddRadar(ctx, sim.NewRadar{
		Name:     req.Name,
		Position: models.Point{Lat: *req.Lat, Lng: *req.Lng},
		RangeNM:  req.RangeNM,
	})
	if err != nil {
		h.commandError(c, "add_radar", err)
		return
	}
	h.ok(c, "add_radar", http.StatusCreated, radar)
}

// RemoveRadar удаляет радар
// DELETE /api/v1/radars/:id
func (h *RESTHandler) RemoveRadar(c *gin.Context) {
	ctx, cancel := h.commandContext(c)
	defer cancel()

	if err := h.sim.RemoveRadar(ctx, c.Param("id")); err != nil {
		h.commandError(c, "remove_radar", err)
		return
	}
	metrics.ObserveCommand("http", "remove_radar", nil)
	c.Status(http.StatusNoContent)
}

// ToggleRadar переключает радар
// POST /api/v1/radars/:id/toggle
func (h *RESTHandler) ToggleRadar(c *gin.Context) {
	ctx, cancel := h.commandContext(c)
	defer cancel()

	radar, err := h.sim.ToggleRadar(ctx, c.Param("id"))
	if err != nil {
		h.commandError(c, "toggle_radar", err)
		return
	}
	h.ok(c, "toggle_radar", http.StatusOK, radar)
}

// BulkOutage выключает долю радаров
// POST /api/v1/radars/bulk-outage
func (h *RESTHandler) BulkOutage(c *gin.Context) {
	var req BulkOutageRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	fraction := -1.0
	if req.Fraction != nil {
		fraction = *req.Fraction
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	ids, err := h.sim.BulkOutage(ctx, fraction)
	if err != nil {
		h.commandError(c, "bulk_outage", err)
		return
	}
	h.ok(c, "bulk_outage", http.StatusOK, gin.H{
		"deactivated": ids,
		"count":       len(ids),
	})
}

// DeactivateRadars выключает радары без восстановления
// POST /api/v1/radars/deactivate
func (h *RESTHandler) DeactivateRadars(c *gin.Context) {
	var req DeactivateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	n, err := h.sim.DeactivateRadars(ctx, req.RadarIDs)
	if err != nil {
		h.commandError(c, "deactivate_radars", err)
		return
	}
	h.ok(c, "deactivate_radars", http.StatusOK, gin.H{"count": n})
}

// LoadDefaultRadars сбрасывает симуляцию
// POST /api/v1/radars/load-defaults
func (h *RESTHandler) LoadDefaultRadars(c *gin.Context) {
	ctx, cancel := h.commandContext(c)
	defer cancel()

	if err := h.sim.LoadDefaultRadars(ctx); err != nil {
		h.commandError(c, "load_default_radars", err)
		return
	}
	h.ok(c, "load_default_radars", http.StatusOK, h.sim.Snapshot().Counts)
}

// SetFinance заменяет финансовые параметры
// PUT /api/v1/finance
func (h *RESTHandler) SetFinance(c *gin.Context) {
	var fc models.FinancialConfig
	if err := c.ShouldBindJSON(&fc); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := fc.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	if err := h.sim.SetFinancialConfig(ctx, fc); err != nil {
		h.commandError(c, "set_finance", err)
		return
	}
	h.ok(c, "set_finance", http.StatusOK, fc)
}

// SetSpeed меняет множитель скорости
// PUT /api/v1/speed
func (h *RESTHandler) SetSpeed(c *gin.Context) {
	var req SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	if err := h.sim.SetSpeed(ctx, req.Speed); err != nil {
		h.commandError(c, "set_speed", err)
		return
	}
	h.ok(c, "set_speed", http.StatusOK, gin.H{"speed": req.Speed})
}

// Pause ставит симуляцию на паузу
// POST /api/v1/pause
func (h *RESTHandler) Pause(c *gin.Context) {
	h.setRunning(c, false)
}

// Resume снимает симуляцию с паузы
// POST /api/v1/resume
func (h *RESTHandler) Resume(c *gin.Context) {
	h.setRunning(c, true)
}

func (h *RESTHandler) setRunning(c *gin.Context, running bool) {
	command := "pause"
	if running {
		command = "resume"
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	if err := h.sim.SetRunning(ctx, running); err != nil {
		h.commandError(c, command, err)
		return
	}
	h.ok(c, command, http.StatusOK, gin.H{"running": running})
}

// Step продвигает симуляцию вручную
// POST /api/v1/step {"hours": 0.5}
func (h *RESTHandler) Step(c *gin.Context) {
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := h.commandContext(c)
	defer cancel()

	rep, err := h.sim.Step(ctx, req.Hours)
	if err != nil {
		h.commandError(c, "step", err)
		return
	}
	h.ok(c, "step", http.StatusOK, rep)
}
