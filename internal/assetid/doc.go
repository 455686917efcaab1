// Package assetid decodes the filenames the legacy runtime writes for each
// extracted member into typed identities, and assigns stable, collision-free
// output names within a job.
package assetid
