// Package domain defines the vocabulary shared by the region probes and the
// aggregator.
//
// # Sources
//
// A region can be inferred from several subsystems. Each one is a
// [SourceKind] whose ordinal value is its trust rank:
//
//	none               0  placeholder, never observed
//	locale             1  user preference; travellers and expats keep theirs
//	carrier            2  SIM home network (MCC); roaming keeps the home country
//	ip_address         3  external IP geolocation; VPNs and proxies mislead it
//	time_zone          4  system zone, usually set automatically by the OS
//	location_services  5  coarse coordinate with user permission
//
// The table is fixed. Earlier designs moved time_zone and carrier around and
// some compared by rank only; here quality is rank first and recency second.
//
// # Probe contract
//
// A probe returns a [Reading] on success. Every failure (no SIM, no region
// in the locale, network down, permission refused) is an error wrapping one
// of [ErrNoData], [ErrPermissionDenied], [ErrUnreachable] or
// [ErrUnrecognized]. Callers treat any of them as "no observation" and use
// [Reason] to label them.
package domain
