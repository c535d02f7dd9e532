package model

import "fmt"

// Region is an endpoint routing key of the lobby directory. The list changes
// rarely, so it is maintained by hand instead of being fetched.
type Region string

const (
	RegionUSEast      Region = "us-east-1"
	RegionEUCentral   Region = "eu-central-1"
	RegionAPSoutheast Region = "ap-southeast-1"
	RegionAPEast      Region = "ap-east-1"
)

// AllRegions is the default set of regions queried during discovery.
var AllRegions = []Region{
	RegionUSEast,
	RegionEUCentral,
	RegionAPSoutheast,
	RegionAPEast,
}

func (r Region) String() string { return string(r) }

func (r Region) Valid() bool {
	for _, known := range AllRegions {
		if r == known {
			return true
		}
	}
	return false
}

func ParseRegion(s string) (Region, error) {
	r := Region(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown region: %q", s)
	}
	return r, nil
}

func ParseRegions(values []string) ([]Region, error) {
	regions := make([]Region, 0, len(values))
	for _, v := range values {
		r, err := ParseRegion(v)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}
