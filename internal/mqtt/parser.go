package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// ErrInvalidCommand сообщение не является корректной командой
var ErrInvalidCommand = errors.New("invalid command")

// Имена команд (последний сегмент топика <prefix>/commands/<name>)
const (
	CmdToggleRadar       = "toggle_radar"
	CmdBulkOutage        = "bulk_outage"
	CmdAddRadar          = "add_radar"
	CmdRemoveRadar       = "remove_radar"
	CmdDeactivateRadars  = "deactivate_radars"
	CmdLoadDefaultRadars = "load_default_radars"
	CmdSetFinance        = "set_finance"
	CmdSetSpeed          = "set_speed"
	CmdPause             = "pause"
	CmdResume            = "resume"
	CmdStep              = "step"
	CmdStartAnalysis     = "start_analysis"
	CmdCancelAnalysis    = "cancel_analysis"
	CmdFindRedundant     = "find_redundant"
)

// Command распарсенная команда управления симуляцией
type Command struct {
	Name      string `json:"-"`
	RequestID string `json:"request_id,omitempty"`

	RadarID  string                  `json:"radar_id,omitempty"`
	RadarIDs []string                `json:"radar_ids,omitempty"`
	Fraction *float64                `json:"fraction,omitempty"`
	Radar    *sim.NewRadar           `json:"radar,omitempty"`
	Finance  *models.FinancialConfig `json:"finance,omitempty"`
	Speed    float64                 `json:"speed,omitempty"`
	Hours    float64                 `json:"hours,omitempty"`
	Days     int                     `json:"days,omitempty"`
	JobID    string                  `json:"job_id,omitempty"`
}

// Parser разбирает сообщения из топиков команд
type Parser struct {
	prefix string
	logger *utils.Logger
}

// NewParser создает парсер для префикса топиков
func NewParser(prefix string, logger *utils.Logger) *Parser {
	if logger == nil {
		logger = utils.DefaultLogger()
	}
	return &Parser{prefix: strings.Trim(prefix, "/"), logger: logger}
}

// CommandTopic топик подписки на команды
func (p *Parser) CommandTopic() string {
	return p.prefix + "/commands/+"
}

// EventTopic топик событий вида <prefix>/events/<kind>
func (p *Parser) EventTopic(kind string) string {
	return p.prefix + "/events/" + kind
}

// Parse извлекает имя команды из топика и аргументы из JSON
func (p *Parser) Parse(topic string, payload []byte) (*Command, error) {
	parts := strings.Split(topic, "/")
	n := len(parts)
	if n < 3 || parts[n-2] != "commands" || strings.Join(parts[:n-2], "/") != p.prefix {
		return nil, fmt.Errorf("%w: unexpected topic %s", ErrInvalidCommand, topic)
	}

	cmd := &Command{}
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
	}
	cmd.Name = parts[n-1]

	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Validate проверяет наличие обязательных аргументов
func (c *Command) Validate() error {
	switch c.Name {
	case CmdToggleRadar, CmdRemoveRadar:
		if c.RadarID == "" {
			return fmt.Errorf("%w: %s requires radar_id", ErrInvalidCommand, c.Name)
		}
	case CmdBulkOutage:
		if c.Fraction != nil && (*c.Fraction < 0 || *c.Fraction > 1) {
			return fmt.Errorf("%w: fraction must be within [0,1]", ErrInvalidCommand)
		}
	case CmdAddRadar:
		if c.Radar == nil {
			return fmt.Errorf("%w: add_radar requires radar", ErrInvalidCommand)
		}
		if err := c.Radar.Position.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		if c.Radar.RangeNM < 0 {
			return fmt.Errorf("%w: range_nm must not be negative", ErrInvalidCommand)
		}
	case CmdSetFinance:
		if c.Finance == nil {
			return fmt.Errorf("%w: set_finance requires finance", ErrInvalidCommand)
		}
		if err := c.Finance.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
	case CmdSetSpeed:
		if c.Speed <= 0 {
			return fmt.Errorf("%w: speed must be positive", ErrInvalidCommand)
		}
	case CmdStep:
		if c.Hours <= 0 {
			return fmt.Errorf("%w: hours must be positive", ErrInvalidCommand)
		}
	case CmdStartAnalysis:
		if c.Days <= 0 {
			return fmt.Errorf("%w: days must be positive", ErrInvalidCommand)
		}
	case CmdCancelAnalysis:
		if c.JobID == "" {
			return fmt.Errorf("%w: cancel_analysis requires job_id", ErrInvalidCommand)
		}
	case CmdDeactivateRadars, CmdLoadDefaultRadars, CmdPause, CmdResume, CmdFindRedundant:
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, c.Name)
	}
	return nil
}
