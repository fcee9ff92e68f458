package podds

/**
* Podds predicts football match outcomes in three stages
* - Fits a posterior over home/away attack and defense rates (RateEstimator)
* - Simulates matches minute by minute from posterior draws (SimulationEngine)
* - Reduces the simulated population to probabilities and scorelines (AnalyticsAggregator)
 */
