package wizard

import (
	"github.com/sirupsen/logrus"
	"github.com/vitebski/dataset-wizard/pkg/models"
)

// ModeController owns the acquisition mode of a draft. Switching mode is a hard
// reset of everything the previous path produced; the database stays selected
type ModeController struct {
	Draft  *models.DraftDataset
	Logger *logrus.Logger

	// OnReset clears the presentation state tied to the previous path. It runs
	// after the draft fields are cleared and before the mode changes
	OnReset func()
}

// NewModeController creates a new mode controller
func NewModeController(draft *models.DraftDataset, logger *logrus.Logger, onReset func()) *ModeController {
	return &ModeController{Draft: draft, Logger: logger, OnReset: onReset}
}

// Mode returns the current acquisition mode
func (mc *ModeController) Mode() models.AcquisitionMode {
	return mc.Draft.AcquisitionMode
}

// SwitchMode changes the mode and reports whether anything changed
func (mc *ModeController) SwitchMode(mode models.AcquisitionMode) bool {
	if mc.Draft.AcquisitionMode == mode {
		return false
	}

	mc.Draft.TableName = ""
	mc.Draft.QueryText = ""
	mc.Draft.Selection = &models.SelectionSnapshot{}

	if mc.OnReset != nil {
		mc.OnReset()
	}

	mc.Logger.Debugf("Acquisition mode switched from %s to %s", mc.Draft.AcquisitionMode, mode)
	mc.Draft.AcquisitionMode = mode
	return true
}
