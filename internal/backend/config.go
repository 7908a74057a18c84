package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to mirror config. A
// configured spreadsheet selects the Sheets mirror.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	mirrorType := MemoryMirror
	if appConfig.SheetsEnabled() {
		mirrorType = SheetsMirror
	}

	return Config{
		Type: mirrorType,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}
