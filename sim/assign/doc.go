// Package assign decides which robot performs which task.
//
// Two strategies are supported and selected per simulation through the
// store's active strategy:
//   - nearest: an idle robot takes the unassigned task with the shortest
//     feasible path
//   - round-robin: robots take turns in list order, each receiving the
//     oldest unassigned task on its turn
//
// A task is feasible for a robot only when the robot's battery strictly
// exceeds the cost of travelling the path plus the cost of doing the work.
// Infeasible candidates are skipped and logged; nothing is raised.
//
// Service is not safe for concurrent use. The engine calls it while holding
// its own lock.
package assign
