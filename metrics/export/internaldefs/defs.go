package internaldefs

import (
	"strconv"
	"strings"

	goToken "github.com/MrEthical07/goToken"
)

// CounterDef names one goToken counter.
type CounterDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// HistogramDef names one goToken latency histogram.
type HistogramDef struct {
	ID   goToken.MetricID
	Name string
	Help string
}

// BucketCount is the number of latency buckets including +Inf.
const BucketCount = len(goToken.HistogramBounds) + 1

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goToken.MetricAccessIssued, Name: "gotoken_access_issued_total", Help: "Access tokens signed."},
	{ID: goToken.MetricRefreshIssued, Name: "gotoken_refresh_issued_total", Help: "Refresh tokens signed."},
	{ID: goToken.MetricIssueFailure, Name: "gotoken_issue_failure_total", Help: "Issuance calls that returned an error."},
	{ID: goToken.MetricIssueSerialization, Name: "gotoken_issue_serialization_failure_total", Help: "Issuance failures caused by values without a JSON form."},
	{ID: goToken.MetricHookFailure, Name: "gotoken_hook_failure_total", Help: "Loader errors during issuance."},
	{ID: goToken.MetricDecodeSuccess, Name: "gotoken_decode_success_total", Help: "Tokens that passed every decode check."},
	{ID: goToken.MetricDecodeMalformed, Name: "gotoken_decode_malformed_total", Help: "Structurally invalid tokens."},
	{ID: goToken.MetricDecodeAlgorithmRejected, Name: "gotoken_decode_algorithm_rejected_total", Help: "Tokens signed with a disallowed algorithm."},
	{ID: goToken.MetricDecodeInvalidSignature, Name: "gotoken_decode_invalid_signature_total", Help: "Tokens failing signature verification."},
	{ID: goToken.MetricDecodeExpired, Name: "gotoken_decode_expired_total", Help: "Expired tokens."},
	{ID: goToken.MetricDecodeNotYetValid, Name: "gotoken_decode_not_yet_valid_total", Help: "Tokens presented before nbf."},
	{ID: goToken.MetricDecodeClaimRejected, Name: "gotoken_decode_claim_rejected_total", Help: "Tokens failing identity, issuer or audience policy."},
	{ID: goToken.MetricDecodeWrongType, Name: "gotoken_decode_wrong_type_total", Help: "Access tokens used as refresh tokens or the reverse."},
	{ID: goToken.MetricDecodeFreshRequired, Name: "gotoken_decode_fresh_required_total", Help: "Non-fresh tokens where freshness was required."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: goToken.MetricIssueLatency, Name: "gotoken_issue_latency_seconds", Help: "Issuance latency histogram."},
	{ID: goToken.MetricDecodeLatency, Name: "gotoken_decode_latency_seconds", Help: "Decode latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels, in seconds, ending in +Inf.
var HistogramBounds = bucketLabels()

// HistogramBoundSuffix are HistogramBounds usable inside instrument names.
var HistogramBoundSuffix = bucketSuffixes()

func bucketLabels() []string {
	out := make([]string, 0, BucketCount)
	for _, d := range goToken.HistogramBounds {
		out = append(out, strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

func bucketSuffixes() []string {
	labels := bucketLabels()
	out := make([]string, len(labels))
	for i, l := range labels {
		if l == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(l, ".", "_")
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling when a
// histogram is missing from the snapshot.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
