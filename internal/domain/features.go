package domain

import (
	"fmt"
	"strings"
)

// FeatureTag is one entry of the fixed vehicle feature vocabulary.
type FeatureTag string

const (
	FeatureAirConditioning FeatureTag = "air_conditioning"
	FeaturePowerSteering   FeatureTag = "power_steering"
	FeaturePowerWindows    FeatureTag = "power_windows"
	FeaturePowerLocks      FeatureTag = "power_locks"
	FeatureAirbag          FeatureTag = "airbag"
	FeatureABSBrakes       FeatureTag = "abs_brakes"
	FeatureAlarm           FeatureTag = "alarm"
	FeatureMultimedia      FeatureTag = "multimedia"
	FeatureBluetooth       FeatureTag = "bluetooth"
	FeatureGPS             FeatureTag = "gps"
	FeatureLeatherSeats    FeatureTag = "leather_seats"
	FeatureSunroof         FeatureTag = "sunroof"
	FeatureParkingSensor   FeatureTag = "parking_sensor"
	FeatureBackupCamera    FeatureTag = "backup_camera"
	FeatureAlloyWheels     FeatureTag = "alloy_wheels"
	FeatureCruiseControl   FeatureTag = "cruise_control"
	FeatureTractionControl FeatureTag = "traction_control"
	FeatureArmored         FeatureTag = "armored"
)

// FeatureLabels maps each tag to its display label, in display order.
var FeatureLabels = []struct {
	Tag   FeatureTag `json:"tag"`
	Label string     `json:"label"`
}{
	{FeatureAirConditioning, "Air conditioning"},
	{FeaturePowerSteering, "Power steering"},
	{FeaturePowerWindows, "Power windows"},
	{FeaturePowerLocks, "Power locks"},
	{FeatureAirbag, "Airbag"},
	{FeatureABSBrakes, "ABS brakes"},
	{FeatureAlarm, "Alarm"},
	{FeatureMultimedia, "Multimedia"},
	{FeatureBluetooth, "Bluetooth"},
	{FeatureGPS, "GPS"},
	{FeatureLeatherSeats, "Leather seats"},
	{FeatureSunroof, "Sunroof"},
	{FeatureParkingSensor, "Parking sensor"},
	{FeatureBackupCamera, "Backup camera"},
	{FeatureAlloyWheels, "Alloy wheels"},
	{FeatureCruiseControl, "Cruise control"},
	{FeatureTractionControl, "Traction control"},
	{FeatureArmored, "Armored"},
}

var knownFeatures = func() map[FeatureTag]bool {
	m := make(map[FeatureTag]bool, len(FeatureLabels))
	for _, f := range FeatureLabels {
		m[f.Tag] = true
	}
	return m
}()

// Valid reports whether t belongs to the vocabulary.
func (t FeatureTag) Valid() bool {
	return knownFeatures[t]
}

// ParseFeatures normalizes raw tags, drops duplicates and rejects unknown ones.
func ParseFeatures(raw []string) ([]FeatureTag, error) {
	seen := make(map[FeatureTag]bool, len(raw))
	tags := make([]FeatureTag, 0, len(raw))
	for _, r := range raw {
		t := FeatureTag(strings.ToLower(strings.TrimSpace(r)))
		if t == "" || seen[t] {
			continue
		}
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, r)
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags, nil
}
