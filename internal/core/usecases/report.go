package usecases

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samirrijal/routeweather/internal/core/domain"
	"github.com/samirrijal/routeweather/internal/pkg/geospatial"
)

// RenderReport writes a plain-text summary of resp. Waypoint times are shown
// in loc (time.Local when nil).
func RenderReport(w io.Writer, resp *domain.MultiRouteResponse, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	ew := &errWriter{w: w}
	ew.printf("%s -> %s\n", resp.OriginAddress, resp.DestinationAddress)
	if km, ok := straightLineKm(resp.Routes); ok {
		ew.printf("Straight line: %.1f km\n", km)
	}

	if len(resp.Routes) == 0 {
		ew.printf("\nNo routes found.\n")
		return ew.err
	}

	rec := resp.Recommendation
	for i, route := range resp.Routes {
		ew.printf("\nRoute %d", route.RouteIndex+1)
		if route.Summary != "" {
			ew.printf(": %s", route.Summary)
		}
		if rec != nil && rec.RecommendedRouteIndex == route.RouteIndex {
			ew.printf(" (recommended)")
		}
		ew.printf("\n  %s, %.1f km", formatMinutes(route.TotalDurationMinutes), route.TotalDistanceKm)

		if rec != nil && i < len(rec.Scores) {
			score := rec.Scores[i]
			ew.printf(", score %.1f (duration %.1f, weather %.1f)\n", score.OverallScore, score.DurationScore, score.WeatherScore)
			if score.RecommendationReason != "" {
				ew.printf("  %s\n", score.RecommendationReason)
			}
		} else {
			ew.printf("\n")
		}

		if ew.err != nil {
			return ew.err
		}
		if err := renderWaypoints(w, route.Waypoints, loc); err != nil {
			return err
		}

		if rec != nil && i < len(rec.Advisories) {
			for _, adv := range rec.Advisories[i] {
				ew.printf("  ! %s: %s\n", adv.Severity, adv.Message)
			}
		}
	}

	return ew.err
}

func renderWaypoints(w io.Writer, waypoints []domain.Waypoint, loc *time.Location) error {
	if len(waypoints) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ETA\t+MIN\tTEMP\tRAIN\tWIND\tCONDITIONS")
	for _, wp := range waypoints {
		eta := wp.EstimatedTime.In(loc).Format("Mon 15:04")
		if wp.Weather == nil {
			fmt.Fprintf(tw, "  %s\t%d\t-\t-\t-\tno forecast\n", eta, wp.MinutesFromStart)
			continue
		}
		wd := wp.Weather
		fmt.Fprintf(tw, "  %s\t%d\t%.1f°C\t%d%%\t%.0f km/h\t%s\n",
			eta, wp.MinutesFromStart, wd.TemperatureC, wd.PrecipitationProbability, wd.WindSpeedKmh, wd.WeatherDescription)
	}
	return tw.Flush()
}

// straightLineKm measures from the first to the last waypoint of the first
// route that has at least two.
func straightLineKm(routes []domain.RouteWithWeather) (float64, bool) {
	for _, r := range routes {
		if n := len(r.Waypoints); n >= 2 {
			return geospatial.DistanceKm(r.Waypoints[0].Location, r.Waypoints[n-1].Location), true
		}
	}
	return 0, false
}

func formatMinutes(total int) string {
	if total < 60 {
		return fmt.Sprintf("%d min", total)
	}
	return fmt.Sprintf("%dh%02dm", total/60, total%60)
}

// errWriter keeps the first write error and turns later writes into no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
