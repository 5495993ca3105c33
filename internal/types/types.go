package types

import (
	"image"
)

// Frame is a single decoded camera frame.
type Frame struct {
	Index int
	Image image.Image
}

// AttendanceRecord is the terminal output of a successful matching run.
type AttendanceRecord struct {
	Name         string `json:"name"`
	EnrollmentNo string `json:"enrollmentNo"`
	Timestamp    string `json:"timestamp"` // HH:MM:SS, local time
}

// Result statuses printed on stdout.
const (
	StatusSuccess     = "success"
	StatusNoDetection = "no_detection"
	StatusEmpty       = "empty"
	StatusError       = "error"
)

// AttendanceResult is the single line emitted by a matching run.
type AttendanceResult struct {
	Status     string            `json:"status"`
	Attendance *AttendanceRecord `json:"attendance,omitempty"`
}

// EnrollmentResult is the single line emitted by an enrollment run.
type EnrollmentResult struct {
	Status       string `json:"status"`
	Name         string `json:"name"`
	RollNo       string `json:"rollNo"`
	Samples      int    `json:"samples"`
	Dimension    int    `json:"dimension,omitempty"`
	EncodedFaces string `json:"encodedFaces,omitempty"` // base64 of Samples*Dimension bytes
	StudentID    string `json:"studentId,omitempty"`
}

// ErrorResult is the single line emitted when a run fails.
type ErrorResult struct {
	Status    string `json:"status"`
	ErrorKind string `json:"errorKind"`
	Error     string `json:"error"`
}
