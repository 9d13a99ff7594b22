// Package probe contains the security probes and the rule tables they apply.
//
// Architecture overview:
//
//   - Every probe implements Probe (Name + Scan). Scan returns findings only;
//     collaborator faults, timeouts and panics are converted into a single error
//     finding at the probe boundary.
//   - Probes never touch the network themselves. They call injected collaborators
//     (Fetcher, Connector, Discoverer) through Blocking, which runs the call on a
//     bounded Pool worker so a stalled socket cannot hold up sibling probes.
//   - Rule evaluation is exposed as pure functions (EvaluateHeaders,
//     EvaluateProtocols, AnalyzeCertificate, EvaluateCipher, EvaluatePorts) so the
//     rule tables can be tested without collaborators.
//
// Rule tables (header policies, disclosure headers, well-known ports, weak
// protocol and cipher markers) are package-level values built once and never
// modified.
package probe
