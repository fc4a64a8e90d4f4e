// Package scanning holds the scan data model and the enumeration stage of
// netsweep.
//
// # Overview
//
// A scan runs under a Session, which carries the profile, the stop flag and
// the atomic counters. Discovery produces LiveHost values; the Enumerator
// turns each of them into a HostRecord by probing the profile's port set,
// identifying services, guessing the operating system and, when an Enricher
// is configured, resolving the hostname and hardware address. Finished
// records are frozen and added to a Result.
//
// # Concurrency
//
// Two Limiters bound the work. The enumeration limiter admits half the host
// cap of the profile at once, and each host gets its own port limiter sized
// by the profile's port concurrency. A Limiter never admits more holders
// than its capacity, and every slot is released on all exit paths.
//
// Stopping a Session makes pending probes return without touching the
// network. Probes already in flight finish; they are bounded by the profile
// timeouts.
//
// # Records
//
// A HostRecord is mutable only until Freeze. After that every setter returns
// an error, so a Result only ever holds complete records, each address at
// most once.
//
// # Usage
//
//	sess := scanning.NewSession("192.168.1.0/24", profiles.Quick())
//	result := scanning.NewResult(sess)
//	enum := scanning.NewEnumerator(prober, enricher, logger, metrics.Nop{})
//	enum.Run(ctx, sess, live, result)
//
//	for _, h := range result.Hosts() {
//		fmt.Println(h.Address(), h.OSGuess(), h.OpenPorts())
//	}
package scanning
