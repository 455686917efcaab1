// Package preflight provides readiness checks for the filesystem paths and
// external programs cgex depends on.
//
// These checks run in two contexts:
//   - "cgex run" calls RunAll before starting the runtime environment and
//     aborts with a configuration error when a check fails.
//   - "cgex check" prints every check, including CheckSystemDeps, as a table.
package preflight
