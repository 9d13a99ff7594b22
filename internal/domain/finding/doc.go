// Package finding holds the shared result model of a scan: Finding, its ordered
// Evidence, and the ScanReport that aggregates the output of every probe.
//
// Values here carry no behaviour beyond construction and serialisation. Finding IDs
// are derived with NewID so that rescans of an unchanged target reproduce the same IDs.
package finding
