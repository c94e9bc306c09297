package handler

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

// Периоды анализа
var analysisPeriods = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
	"year":  365,
}

// AddRadarRequest тело POST /api/v1/radars
type AddRadarRequest struct {
	Name    string   `json:"name" binding:"max=64"`
	Lat     *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
	RangeNM float64  `json:"range_nm" binding:"gte=0,lte=2000"`
}

// BulkOutageRequest тело POST /api/v1/radars/bulk-outage.
// Без fraction используется доля из настроек.
type BulkOutageRequest struct {
	Fraction *float64 `json:"fraction" binding:"omitempty,gte=0,lte=1"`
}

// DeactivateRequest тело POST /api/v1/radars/deactivate.
// Пустой список выключает последние предложенные избыточные радары.
type DeactivateRequest struct {
	RadarIDs []string `json:"radar_ids"`
}

// SpeedRequest тело PUT /api/v1/speed
type SpeedRequest struct {
	Speed float64 `json:"speed" binding:"required,gt=0,lte=100000"`
}

// StepRequest тело POST /api/v1/step
type StepRequest struct {
	Hours float64 `json:"hours" binding:"required,gt=0,lte=24"`
}

// StartAnalysisRequest тело POST /api/v1/analysis/jobs
type StartAnalysisRequest struct {
	Days   int    `json:"days" binding:"omitempty,gt=0"`
	Period string `json:"period" binding:"omitempty,oneof=day week month year"`
}

// ResolveDays число суток анализа: явное или по периоду
func (r StartAnalysisRequest) ResolveDays() (int, error) {
	if r.Days > 0 {
		return r.Days, nil
	}
	if days, ok := analysisPeriods[r.Period]; ok {
		return days, nil
	}
	return 0, fmt.Errorf("days or period is required")
}

// bindOptionalJSON разбирает тело, пустое тело допустимо
func bindOptionalJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
