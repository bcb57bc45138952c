package model

import "errors"

// ErrNoNAVData the extraction cascade produced zero plausible points.
var ErrNoNAVData = errors.New("no NAV data found")

// ErrInvalidFundCode the fund code is empty.
var ErrInvalidFundCode = errors.New("invalid fund code")

// ErrFundNotFound no history is stored for the fund.
var ErrFundNotFound = errors.New("fund not found or no data available")

// ErrStorageUnavailable persisted state could not be read or written.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrFetchFailed a page, API or browser fetch failed.
var ErrFetchFailed = errors.New("fetch failed")
