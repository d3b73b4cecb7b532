package detector

// Detect exposes detect for testing.
var Detect = detect
