package observability

import (
	"os"
	"strconv"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Standard OTEL sampler env vars; read directly so config stays focused on the engine.
const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

const defaultTraceIDRatio = 1.0

var fixedSamplers = map[string]func() sdktrace.Sampler{
	"always_on":              sdktrace.AlwaysSample,
	"always_off":             sdktrace.NeverSample,
	"parentbased_always_on":  func() sdktrace.Sampler { return sdktrace.ParentBased(sdktrace.AlwaysSample()) },
	"parentbased_always_off": func() sdktrace.Sampler { return sdktrace.ParentBased(sdktrace.NeverSample()) },
}

// newSampler builds a Sampler from OTEL_TRACES_SAMPLER / OTEL_TRACES_SAMPLER_ARG.
// Empty or unknown values fall back to parentbased_always_on.
func newSampler() sdktrace.Sampler {
	return samplerFor(os.Getenv(envTracesSampler), os.Getenv(envTracesSamplerArg))
}

func samplerFor(name, arg string) sdktrace.Sampler {
	if build, ok := fixedSamplers[name]; ok {
		return build()
	}

	switch name {
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(parseTraceIDRatio(arg))
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(parseTraceIDRatio(arg)))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// parseTraceIDRatio returns the ratio in [0, 1], or defaultTraceIDRatio for empty or invalid input.
func parseTraceIDRatio(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return defaultTraceIDRatio
	}

	return f
}
