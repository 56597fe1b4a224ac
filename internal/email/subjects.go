package email

const (
	subjectKPIDigestFmt = "Controlo comercial: semana de %s"
	digestTitle         = "Resumo semanal de KPIs"
)
