package db

import (
	"errors"
	"fmt"
)

var (
	errFailedToQuery     = errors.New("failed to query")
	errFailedToScan      = errors.New("failed to scan")
	errFailedToUpsert    = errors.New("failed to upsert")
	errFailedToUpdate    = errors.New("failed to update")
	errFailedToInit      = errors.New("failed to initialize schema")
	errFailedToEnableWAL = errors.New("failed to enable WAL mode")
	errFailedOpenDB      = fmt.Errorf("failed to open database")
)
