package observability

// SelectSampler exposes selectSampler to the external test package.
var SelectSampler = selectSampler
