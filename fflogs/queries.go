package fflogs

const reportQuery = `query getReportData($reportCode: String!) {
  reportData {
    report(code: $reportCode) {
      title
      startTime
      endTime
      owner { name }
      guild { name }
      fights {
        id
        encounterID
        name
        difficulty
        kill
        bossPercentage
        fightPercentage
        lastPhase
        startTime
        endTime
      }
    }
  }
}`

const speedRankingQuery = `query getSpeedRankings($reportCode: String!, $fightIDs: [Int]!) {
  reportData {
    report(code: $reportCode) {
      rankings(fightIDs: $fightIDs, playerMetric: speed)
    }
  }
}`
