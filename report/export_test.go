package report

var Fit = fit
