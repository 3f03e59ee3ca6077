package roadblock

import "github.com/vovakirdan/cordon/internal/config"

// BackupUnit identifies the kind of unit manning a slot.
type BackupUnit string

const (
	BackupNone        BackupUnit = "none"
	BackupLocalPatrol BackupUnit = "local-patrol"
	BackupStatePatrol BackupUnit = "state-patrol"
	BackupTransporter BackupUnit = "transporter"
	BackupSWAT        BackupUnit = "swat"
	BackupNooseSWAT   BackupUnit = "noose-swat"
)

// CrewPlan is the resolved composition for one slot: which unit mans
// it, what gets spawned and how many crew members it carries.
type CrewPlan struct {
	Unit         BackupUnit
	VehicleModel string
	CopModel     string
	Cops         int
	Barrier      string
	Light        string
}

// PlanForLevel turns a configured level into a crew plan.
func PlanForLevel(spec config.LevelSpec) CrewPlan {
	return CrewPlan{
		Unit:         unitForLevel(spec.Level),
		VehicleModel: spec.VehicleModel,
		CopModel:     spec.CopModel,
		Cops:         spec.CopsPerVehicle,
		Barrier:      spec.Barrier,
		Light:        spec.Light,
	}
}

func unitForLevel(level int) BackupUnit {
	switch level {
	case 1:
		return BackupLocalPatrol
	case 2:
		return BackupStatePatrol
	case 3:
		return BackupTransporter
	case 4:
		return BackupSWAT
	default:
		return BackupNooseSWAT
	}
}
