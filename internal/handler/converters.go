package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/flybeeper/radarsim/internal/models"
)

// ContentTypeProtobuf формат ответа по заголовку Accept
const ContentTypeProtobuf = "application/x-protobuf"

func wantsProtobuf(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), ContentTypeProtobuf)
}

// respond отдает v в JSON или, по Accept, как protobuf Struct
func respond(c *gin.Context, status int, v interface{}) {
	if !wantsProtobuf(c) {
		c.JSON(status, v)
		return
	}

	msg, err := toStruct(v)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "marshal_error", "Failed to serialize response")
		return
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "marshal_error", "Failed to serialize response")
		return
	}
	c.Data(status, ContentTypeProtobuf, data)
}

// respondError ответ с ошибкой в формате {code, message}
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

// toStruct переводит значение в structpb.Struct через JSON-представление.
// Значения, не являющиеся объектом, оборачиваются в {"data": ...}.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	m, ok := generic.(map[string]interface{})
	if !ok {
		m = map[string]interface{}{"data": generic}
	}
	return structpb.NewStruct(m)
}

// parseBounds разбирает "swLat,swLng,neLat,neLng"
func parseBounds(boundsStr string) (sw, ne models.Point, err error) {
	parts := strings.Split(boundsStr, ",")
	if len(parts) != 4 {
		return sw, ne, fmt.Errorf("bounds must have 4 values")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return sw, ne, fmt.Errorf("invalid coordinate: %s", part)
		}
		coords[i] = coord
	}

	sw = models.Point{Lat: coords[0], Lng: coords[1]}
	ne = models.Point{Lat: coords[2], Lng: coords[3]}
	if err := sw.Validate(); err != nil {
		return sw, ne, err
	}
	if err := ne.Validate(); err != nil {
		return sw, ne, err
	}
	if sw.Lat > ne.Lat || sw.Lng > ne.Lng {
		return sw, ne, fmt.Errorf("southwest corner must be below and left of northeast")
	}
	return sw, ne, nil
}

// filterAircraft отбирает суда по прямоугольнику и статусу сопровождения
func filterAircraft(aircraft []models.Aircraft, sw, ne *models.Point, visibility models.Visibility) []models.Aircraft {
	out := make([]models.Aircraft, 0, len(aircraft))
	for _, ac := range aircraft {
		if sw != nil && ne != nil && !ac.Position.IsInBounds(*sw, *ne) {
			continue
		}
		if visibility != "" && ac.Visibility != visibility {
			continue
		}
		out = append(out, ac)
	}
	return out
}
