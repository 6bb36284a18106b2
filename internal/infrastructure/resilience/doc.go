/*
Package resilience provides the circuit breaker that guards calls to the
remote version endpoints, download hosts and any other site reached by the
standalone HTTP client.

# Usage

	breaker := resilience.New("driver-catalog", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

Allow admits a request and hands back a done func for its outcome:

	done, err := breaker.Allow()
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	done(err == nil && resp.StatusCode < 500)

# States

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[MaxRequests successes]-> Closed
	                                               |
	                                           [failure]
	                                               v
	                                              Open
*/
package resilience
