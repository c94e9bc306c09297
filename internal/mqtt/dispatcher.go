package mqtt

import (
	"context"
	"fmt"

	"github.com/flybeeper/radarsim/internal/analysis"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/internal/sim"
)

// Controller команды симуляции, доступные через MQTT
type Controller interface {
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
	StartAnalysis(days int) (service.JobInfo, error)
	CancelJob(id string) error
	FindRedundant(ctx context.Context) (*analysis.RedundancyResult, error)
}

var _ Controller = (*service.Controller)(nil)

// Result ответ на команду, публикуется в <prefix>/events/result
type Result struct {
	RequestID string      `json:"request_id,omitempty"`
	Command   string      `json:"command"`
	Status    string      `json:"status"`
	Error     string      `json:"error,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Dispatch выполняет команду на контроллере
func Dispatch(ctx context.Context, ctrl Controller, cmd *Command) (interface{}, error) {
	switch cmd.Name {
	case CmdToggleRadar:
		return ctrl.ToggleRadar(ctx, cmd.RadarID)
	case CmdBulkOutage:
		fraction := -1.0
		if cmd.Fraction != nil {
			fraction = *cmd.Fraction
		}
		ids, err := ctrl.BulkOutage(ctx, fraction)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"deactivated": ids}, nil
	case CmdAddRadar:
		return ctrl.AddRadar(ctx, *cmd.Radar)
	case CmdRemoveRadar:
		return nil, ctrl.RemoveRadar(ctx, cmd.RadarID)
	case CmdDeactivateRadars:
		n, err := ctrl.DeactivateRadars(ctx, cmd.RadarIDs)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"deactivated": n}, nil
	case CmdLoadDefaultRadars:
		return nil, ctrl.LoadDefaultRadars(ctx)
	case CmdSetFinance:
		return nil, ctrl.SetFinancialConfig(ctx, *cmd.Finance)
	case CmdSetSpeed:
		return nil, ctrl.SetSpeed(ctx, cmd.Speed)
	case CmdPause:
		return nil, ctrl.SetRunning(ctx, false)
	case CmdResume:
		return nil, ctrl.SetRunning(ctx, true)
	case CmdStep:
		return ctrl.Step(ctx, cmd.Hours)
	case CmdStartAnalysis:
		return ctrl.StartAnalysis(cmd.Days)
	case CmdCancelAnalysis:
		return nil, ctrl.CancelJob(cmd.JobID)
	case CmdFindRedundant:
		return ctrl.FindRedundant(ctx)
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, cmd.Name)
}
