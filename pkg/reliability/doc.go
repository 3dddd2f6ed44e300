// Package reliability projects the failure risk of a vehicle part from its
// usage since the last service.
//
// registry.go holds the read-only table of per-part Weibull parameters. Each
// entry carries a shape exponent and one calibration anchor (the cumulative
// failure probability expected at the manufacturer's service interval) for the
// distance dimension and, where meaningful, the time dimension.
//
// weibull.go provides the closed-form calibration of the scale parameter and
// the conditional (remaining-life) failure probability:
//
//	F(t)  = 1 - exp(-(t/λ)^k)
//	λ     = x / (-ln(1-p))^(1/k)                  so that F(x) = p
//	P(Δ)  = (F(t+Δ) - F(t)) / max(1e-9, 1 - F(t)) clamped to [0, 1]
//
// climate.go applies the per-part climate factor to the calibrated scale.
//
// project.go assembles a Projection: the sampled risk curve over a forward
// distance horizon, the metadata record, and the optional 1/3/6 month summary.
//
// Everything here is a pure function of its inputs. Project returns exactly one
// error kind, *UnsupportedPartError; every other numeric edge case is absorbed
// by clamping or substitution.
package reliability
