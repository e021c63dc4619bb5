package metadata

import "strings"

var datacenters = map[string]string{
	"iad": "us-east-1",
	"rld": "us-west-2",
	"dub": "eu-west-1",
	"ord": "us-east-2",
}

// RegionFromAZ strips the trailing zone letter: "us-east-1a" -> "us-east-1".
func RegionFromAZ(az string) string {
	if az == "" {
		return ""
	}
	return az[:len(az)-1]
}

// DatacenterFor returns the datacenter code of region, or "" if unmapped.
func DatacenterFor(region string) string {
	for dc, r := range datacenters {
		if r == region {
			return dc
		}
	}
	return ""
}

// RegionFor returns the region of a datacenter code, or "" if unknown.
func RegionFor(datacenter string) string {
	return datacenters[strings.ToLower(datacenter)]
}
