// Package memory provides implementations of core.AlertStore, the recall
// surface for previously flagged cards. The detector consults it through the
// search_alert_history tool so repeated activity on a compromised card can
// raise the score of later transactions.
package memory
