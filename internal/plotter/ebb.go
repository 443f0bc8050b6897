package plotter

import (
	"fmt"
	"math"

	"github.com/plotter-studio/backend/internal/models"
)

const (
	StepsPerInch           = 2874
	MaxDrawSpeedInPerSec   = 8.6979
	MaxTravelSpeedInPerSec = 15.0

	minSpeedInPerSec = 0.1
)

const (
	CmdMotorsOn  = "EM,1,1"
	CmdMotorsOff = "EM,0,0"
	CmdEStop     = "ES"
)

// roundHalfUp rounds ties toward positive infinity so negative deltas step
// the same way as positive ones.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func toSteps(deltaInches float64) int {
	return roundHalfUp(deltaInches * StepsPerInch)
}

// SpeedFromPercent resolves a speed percentage against a machine maximum.
func SpeedFromPercent(percent, maxSpeed float64) float64 {
	return math.Max(minSpeedInPerSec, ClampPercent(percent)/100*maxSpeed)
}

// MoveDurationMs is the time for a straight move, never less than 1 ms.
func MoveDurationMs(start, end models.Point, penDown bool, cfg models.PlotterConfig) int {
	speed := SpeedFromPercent(cfg.SpeedPenUp, MaxTravelSpeedInPerSec)
	if penDown {
		speed = SpeedFromPercent(cfg.SpeedPenDown, MaxDrawSpeedInPerSec)
	}
	ms := roundHalfUp(models.Distance(start, end) / speed * 1000)
	if ms < 1 {
		return 1
	}
	return ms
}

func moveCommand(start, end models.Point, penDown bool, cfg models.PlotterConfig) string {
	return fmt.Sprintf("XM,%d,%d,%d",
		MoveDurationMs(start, end, penDown, cfg),
		toSteps(end.X-start.X),
		toSteps(end.Y-start.Y),
	)
}

func penUpCommand(cfg models.PlotterConfig) string {
	return fmt.Sprintf("SP,0,%d", cfg.PenUpDelayMs)
}

func penDownCommand(cfg models.PlotterConfig) string {
	return fmt.Sprintf("SP,1,%d", cfg.PenDownDelayMs)
}

// BuildPackets compiles a plan into EBB packets. Coordinates are inches with
// the pen starting at the origin.
func BuildPackets(plan models.PlotJobPlan, cfg models.PlotterConfig) []models.Packet {
	packets := []models.Packet{
		models.CommandPacket{Command: CmdMotorsOn},
		models.CommandPacket{Command: penUpCommand(cfg)},
	}

	cursor := models.Point{}
	for i, layer := range plan.Layers {
		if plan.Mode == models.LayerModePauseBetween && i > 0 {
			packets = append(packets, models.PauseMarker{LayerID: layer.ID, LayerName: layer.Name})
		}

		for _, pl := range layer.Polylines {
			if !pl.Drawable() {
				continue
			}
			packets, cursor = appendStroke(packets, cursor, pl, cfg, layer.ID)
		}
	}

	return append(packets, models.CommandPacket{Command: CmdMotorsOff})
}

func appendStroke(packets []models.Packet, cursor models.Point, pl models.Polyline, cfg models.PlotterConfig, layerID string) ([]models.Packet, models.Point) {
	cmd := func(s string) models.Packet {
		return models.CommandPacket{Command: s, LayerID: layerID}
	}

	if start := pl.Start(); models.Distance(cursor, start) > 0 {
		packets = append(packets,
			cmd(penUpCommand(cfg)),
			cmd(moveCommand(cursor, start, false, cfg)),
		)
		cursor = start
	}

	packets = append(packets, cmd(penDownCommand(cfg)))
	for _, target := range pl[1:] {
		packets = append(packets, cmd(moveCommand(cursor, target, true, cfg)))
		cursor = target
	}
	packets = append(packets, cmd(penUpCommand(cfg)))

	return packets, cursor
}
