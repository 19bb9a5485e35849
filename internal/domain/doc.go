// Package domain models tourist safety data: hazard zones, location samples,
// alerts and the audit trail.
//
// # Zones
//
// A zone is a circle given by a WGS-84 center and a radius in meters. Zones
// live in two ordered lists held by [ZoneRegistry]:
//
//	Active  always checked, in registration order
//	Night   checked only while the local hour is inside the zone's window
//
// Evaluation is first-match: the first Active zone containing the point wins;
// Night zones are consulted only when no Active zone matched. The boundary is
// inclusive (distance <= radius). Distances use the haversine formula on a
// sphere of radius 6,371,000 m, see [Distance].
//
// # Night Window
//
// The default window is 20:00 through 06:59 local time. Both hour 20 and hour
// 6 are inside, so the window covers eleven clock hours. Local time is the
// zone timezone configured on the [Evaluator] (Asia/Kolkata by default), not
// the host timezone.
//
// # Fail-Open Evaluation
//
// An out-of-range coordinate or an unexpected failure inside evaluation
// produces a verdict with Violated=false and EvaluationError=true. Callers
// record the sample as normal and raise no alert. This keeps the location
// stream flowing at the price of missing a breach; EvaluationError lets
// operators count how often that happens.
//
// # Identifiers
//
// Alert, location and audit ids are <prefix><n> where n starts from the
// creation time in unix milliseconds times 1000 and is strictly increasing
// per [IDGenerator]. Ids therefore sort in issue order and never collide
// within one process, even under bursts or clock steps. See [IDGenerator.Next].
package domain
