// Package environment supervises the virtual display and audio services the
// legacy runtime requires. A Supervisor starts them once per run, health checks
// them between movies, and always tears them down, including on signals.
package environment
